package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// InternalKey guards the internal pass service routes with a shared key sent
// in the given header.  With no key configured every request is refused:
// the routes hand out live pass tokens.
func InternalKey(header, key string) echo.MiddlewareFunc {
	if key == "" {
		return func(echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "internal routes disabled"})
			}
		}
	}
	want := []byte(key)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := []byte(c.Request().Header.Get(header))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid internal key"})
			}
			return next(c)
		}
	}
}
