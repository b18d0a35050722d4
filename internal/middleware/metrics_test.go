package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type recordedRequest struct {
	method string
	path   string
	status int
}

type recordingObserver struct{ requests []recordedRequest }

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.requests = append(r.requests, recordedRequest{method, path, status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.DELETE("/attendance/check-ins/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, target := range []string{"/attendance/check-ins/ci-1", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, target, nil))
	}

	assert.Equal(t, []recordedRequest{
		{http.MethodDelete, "/attendance/check-ins/:id", http.StatusNoContent},
		{http.MethodDelete, "unmatched", http.StatusNotFound},
	}, observer.requests)
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	WithResponseMeta()(c)
	SetCacheHit(c, true)

	meta := ResponseMeta(c)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}
