package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger emits one structured line per request. The NHSD identity header is
// included for traceability across the API platform; request and response
// bodies are never logged, they carry patient data.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			requestID, _ := c.Get("request_id").(string)

			err := next(c)

			event := logger.Info()
			if err != nil {
				event = logger.Error().Err(err)
			}
			event.
				Str("request_id", requestID).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Str("nhsd_identity", req.Header.Get("NHSD-Identity-UUID")).
				Msg("request")

			return err
		}
	}
}
