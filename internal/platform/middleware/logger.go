package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one access line per request. 5xx responses log at error
// and 4xx at warn.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			level := zerolog.InfoLevel
			if res.Status >= 500 {
				level = zerolog.ErrorLevel
			} else if res.Status >= 400 {
				level = zerolog.WarnLevel
			}

			office, _ := c.Get("office_id").(string)
			logger.WithLevel(level).
				Err(err).
				Str("request_id", requestIDOf(c)).
				Str("office_id", office).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", res.Status).
				Int64("bytes", res.Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")
			return nil
		}
	}
}
