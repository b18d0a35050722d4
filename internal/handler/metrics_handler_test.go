package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err   error
	calls int
}

func (p *stubPinger) PingContext(ctx context.Context) error {
	p.calls++
	return p.err
}

func serveReady(h *MetricsHandler) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ready", h.Ready)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	return rec
}

func TestReadyChecksDatabaseAndCache(t *testing.T) {
	t.Run("all reachable", func(t *testing.T) {
		db, cache := &stubPinger{}, &stubPinger{}
		rec := serveReady(NewMetricsHandler(nil, db, cache))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, db.calls)
		assert.Equal(t, 1, cache.calls)
	})

	t.Run("cache down", func(t *testing.T) {
		db, cache := &stubPinger{}, &stubPinger{err: errors.New("dial tcp: connection refused")}
		rec := serveReady(NewMetricsHandler(nil, db, cache))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unavailable", body["status"])
		assert.Equal(t, "redis", body["dependency"])
		assert.Contains(t, body["error"], "connection refused")
	})

	t.Run("database down skips cache", func(t *testing.T) {
		db, cache := &stubPinger{err: errors.New("bad connection")}, &stubPinger{}
		rec := serveReady(NewMetricsHandler(nil, db, cache))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "postgres")
		assert.Zero(t, cache.calls)
	})

	t.Run("no dependencies", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serveReady(NewMetricsHandler(nil, nil, nil)).Code)
	})
}
