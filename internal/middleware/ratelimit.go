package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/octobees/tablemate/internal/config"
)

const maxTrackedLimiters = 10000

// TurnRateLimiter applies a token bucket per conversation. Requests without an
// :id path parameter share a bucket per client IP.
func TurnRateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}

	limiters := make(map[string]*rate.Limiter)
	var mu sync.Mutex

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Param("id")
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			mu.Lock()
			limiter, ok := limiters[key]
			if !ok {
				if len(limiters) >= maxTrackedLimiters {
					limiters = make(map[string]*rate.Limiter)
				}
				limiter = rate.NewLimiter(rate.Every(perRequest), cfg.Requests)
				limiters[key] = limiter
			}
			allowed := limiter.Allow()
			mu.Unlock()

			if !allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "turn rate limit exceeded"})
			}

			return next(c)
		}
	}
}
