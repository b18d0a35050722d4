package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type memReservations struct {
	keys       map[string]bool
	reserveErr error
}

func (m *memReservations) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	if m.reserveErr != nil {
		return false, m.reserveErr
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memReservations) Release(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type countingMetrics struct{ duplicates int }

func (m *countingMetrics) RecordDuplicateSubmission() { m.duplicates++ }

func newIdempotentRouter(store reservationStore, metrics duplicateCounter, status *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextTeacherKey, &models.JWTClaims{TeacherID: "teacher-1"})
		c.Next()
	})
	router.Use(Idempotency(IdempotencyOptions{Store: store, Metrics: metrics}))
	router.POST("/attendance/check-ins", func(c *gin.Context) {
		c.Status(*status)
	})
	return router
}

func postCheckIn(router *gin.Engine, key string) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/attendance/check-ins", nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	store := &memReservations{keys: map[string]bool{}}
	metrics := &countingMetrics{}
	status := http.StatusCreated
	router := newIdempotentRouter(store, metrics, &status)

	assert.Equal(t, http.StatusCreated, postCheckIn(router, "abc"))
	assert.Equal(t, http.StatusConflict, postCheckIn(router, "abc"))
	assert.Equal(t, 1, metrics.duplicates)
	assert.True(t, store.keys["idem:teacher-1:POST:/attendance/check-ins:abc"])

	assert.Equal(t, http.StatusCreated, postCheckIn(router, "def"))
	assert.Equal(t, http.StatusCreated, postCheckIn(router, ""))
	assert.Equal(t, http.StatusCreated, postCheckIn(router, ""))
}

func TestIdempotencyReleasesFailedWrites(t *testing.T) {
	store := &memReservations{keys: map[string]bool{}}
	status := http.StatusPreconditionFailed
	router := newIdempotentRouter(store, nil, &status)

	assert.Equal(t, http.StatusPreconditionFailed, postCheckIn(router, "abc"))
	assert.Empty(t, store.keys)

	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, postCheckIn(router, "abc"))
}

func TestIdempotencyReleasesPanickingWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &memReservations{keys: map[string]bool{}}
	router := gin.New()
	router.Use(gin.RecoveryWithWriter(io.Discard))
	router.Use(func(c *gin.Context) {
		c.Set(ContextTeacherKey, &models.JWTClaims{TeacherID: "teacher-1"})
		c.Next()
	})
	router.Use(Idempotency(IdempotencyOptions{Store: store}))
	calls := 0
	router.POST("/attendance/check-ins", func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("nil map write")
		}
		c.Status(http.StatusCreated)
	})

	assert.Equal(t, http.StatusInternalServerError, postCheckIn(router, "abc"))
	assert.Empty(t, store.keys)
	assert.Equal(t, http.StatusCreated, postCheckIn(router, "abc"))
	assert.Equal(t, http.StatusConflict, postCheckIn(router, "abc"))
}

func TestIdempotencyPassThrough(t *testing.T) {
	status := http.StatusCreated
	router := newIdempotentRouter(nil, nil, &status)
	assert.Equal(t, http.StatusCreated, postCheckIn(router, "abc"))
	assert.Equal(t, http.StatusCreated, postCheckIn(router, "abc"))

	failing := &memReservations{keys: map[string]bool{}, reserveErr: errors.New("redis down")}
	router = newIdempotentRouter(failing, nil, &status)
	require.Equal(t, http.StatusCreated, postCheckIn(router, "abc"))
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(stubTokens{}))
	router.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, TeacherID(c))
	})

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token good", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.header)
		if tc.status == http.StatusOK {
			assert.Equal(t, "teacher-1", rec.Body.String())
		}
	}
}

type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{TeacherID: "teacher-1"}, nil
}
