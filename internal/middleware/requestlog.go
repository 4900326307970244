package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger attaches a request-scoped logger to the request context
// and logs one line per request.  The request id is taken from
// X-Request-ID when the caller sent one and echoed back in the response.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			lc := base.With().Str("request_id", rid)
			if sc := trace.SpanContextFromContext(req.Context()); sc.HasTraceID() {
				lc = lc.Str("trace_id", sc.TraceID().String())
			}
			l := lc.Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			// JWTAuth may have replaced the logger with one carrying user_id.
			ev := zerolog.Ctx(c.Request().Context()).Info()
			status := c.Response().Status
			if status >= 500 {
				ev = zerolog.Ctx(c.Request().Context()).Error()
			}
			ev.Str("method", req.Method).
				Str("route", c.Path()).
				Str("uri", req.RequestURI).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}
