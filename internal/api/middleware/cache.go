package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/compupay/hr-backend/internal/api/metrics"
)

// CacheStore keeps rendered responses.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
	Purge(ctx context.Context, prefix string) error
}

// ResponseCache serves successful GET responses of the wrapped routes from
// store for ttl. Entries are keyed by scope, caller role and request URI, so
// callers with different roles never share an entry. A zero ttl disables it.
// Store errors are logged and the request is served uncached.
func ResponseCache(store CacheStore, scope string, ttl time.Duration, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if ttl <= 0 {
			return next
		}
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			role, _ := c.Get(ContextRole).(string)
			key := scope + ":" + role + ":" + c.Request().URL.RequestURI()
			ctx := c.Request().Context()

			body, hit, err := store.Get(ctx, key)
			switch {
			case err != nil:
				metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
				log.Warn().Err(err).Str("key", key).Msg("response cache lookup failed")
			case hit:
				metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, body)
			default:
				metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status == http.StatusOK && rec.buf.Len() > 0 {
				if err := store.Set(ctx, key, rec.buf.Bytes(), ttl); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("response cache store failed")
				}
			}
			return nil
		}
	}
}

// PurgeCache drops every cached entry of scope after a successful mutation
// through the wrapped route.
func PurgeCache(store CacheStore, scope string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if status := c.Response().Status; status >= 200 && status < 300 {
				if err := store.Purge(c.Request().Context(), scope+":"); err != nil {
					log.Warn().Err(err).Str("scope", scope).Msg("response cache purge failed")
				}
			}
			return nil
		}
	}
}

// bodyRecorder copies everything written to the client into buf.
type bodyRecorder struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}
