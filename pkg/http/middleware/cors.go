package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type CORSConfig struct {
	AllowOrigins  []string // "*" allows any origin
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        time.Duration
}

// CORS answers preflight requests itself and decorates allowed requests.
// Requests from origins outside the list pass through undecorated so the
// browser blocks them.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	anyOrigin := false
	allowed := make(map[string]struct{}, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			anyOrigin = true
		}
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			h := c.Response().Header()
			origin := req.Header.Get(echo.HeaderOrigin)
			h.Add(echo.HeaderVary, echo.HeaderOrigin)

			if origin == "" {
				return next(c)
			}
			if _, ok := allowed[origin]; !ok && !anyOrigin {
				return next(c)
			}
			if anyOrigin {
				h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			} else {
				h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			}

			if req.Method != http.MethodOptions {
				if expose != "" {
					h.Set(echo.HeaderAccessControlExposeHeaders, expose)
				}
				return next(c)
			}

			// preflight
			if methods != "" {
				h.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, headers)
			} else if reqHeaders := req.Header.Get(echo.HeaderAccessControlRequestHeaders); reqHeaders != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, reqHeaders)
			}
			if maxAge != "" {
				h.Set(echo.HeaderAccessControlMaxAge, maxAge)
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}
