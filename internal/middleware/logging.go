package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logging writes one structured access event per HTTP request.
func Logging(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			event := logger.Info()
			if status := c.Response().Status; status >= 500 {
				event = logger.Error()
			}
			rid, _ := c.Get(ContextKeyRequestID).(string)
			event.
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", latency).
				Msg("http request")

			return err
		}
	}
}
