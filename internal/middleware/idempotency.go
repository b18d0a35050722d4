package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
	"github.com/noah-isme/attendance-api/pkg/response"
)

// IdempotencyHeader carries the client supplied submission key.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

type reservationStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type duplicateCounter interface {
	RecordDuplicateSubmission()
}

// IdempotencyOptions configures the duplicate-submission guard.
type IdempotencyOptions struct {
	Store   reservationStore
	TTL     time.Duration
	Metrics duplicateCounter
	Logger  *zap.Logger
}

// Idempotency rejects a repeated write carrying an Idempotency-Key that is still
// reserved. Requests without the header, and every request when no store is
// configured, pass through. A failed or panicking write releases its key so the
// client may retry.
func Idempotency(opts IdempotencyOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if opts.Store == nil || raw == "" {
			c.Next()
			return
		}
		if len(raw) > maxIdempotencyKeyLength {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "idempotency key too long"))
			c.Abort()
			return
		}

		key := idempotencyKey(TeacherID(c), c.Request.Method, c.FullPath(), raw)
		reserved, err := opts.Store.Reserve(c.Request.Context(), key, opts.TTL)
		if err != nil {
			opts.Logger.Warn("idempotency reserve failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			if opts.Metrics != nil {
				opts.Metrics.RecordDuplicateSubmission()
			}
			response.Error(c, appErrors.ErrDuplicateSubmission)
			c.Abort()
			return
		}

		release := func() {
			if err := opts.Store.Release(context.WithoutCancel(c.Request.Context()), key); err != nil {
				opts.Logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
			}
		}
		defer func() {
			if rec := recover(); rec != nil {
				release()
				panic(rec)
			}
			if c.Writer.Status() >= 400 {
				release()
			}
		}()

		c.Next()
	}
}

func idempotencyKey(teacherID, method, path, key string) string {
	return strings.Join([]string{"idem", teacherID, method, path, key}, ":")
}
