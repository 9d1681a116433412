package ratelimit

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	xhttp "ImpulseSaver/pkg/http"
)

// Middleware rejects requests over the per-client budget with 429. Clients
// are keyed by their real IP.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if l.Allow(key) {
				return next(c)
			}
			appErr := xhttp.TooManyRequestsError("Too many requests, slow down.")
			if wait := l.RetryAfter(key); wait > 0 {
				secs := int(math.Ceil(wait.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				appErr.WithParam("retry_after_seconds", secs)
			}
			return xhttp.AppErrorResponse(c, appErr)
		}
	}
}
