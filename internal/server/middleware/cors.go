package middleware

import (
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

// CORS return echo middleware that handle cors with regexp pattern
func CORS(pattern *regexp.Regexp) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			respHeader := c.Response().Header()
			respHeader.Set("Vary", "Origin")
			origin := c.Request().Header.Get("Origin")
			if origin == "" || !pattern.MatchString(origin) {
				return next(c)
			}
			respHeader.Set("Access-Control-Allow-Origin", origin)
			// the session travels in a cookie
			respHeader.Set("Access-Control-Allow-Credentials", "true")
			if c.Request().Method == http.MethodOptions {
				respHeader.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id, Authorization")
				respHeader.Set("Access-Control-Allow-Methods", "OPTIONS, POST, PUT, DELETE, GET, PATCH")
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
