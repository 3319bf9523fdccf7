package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is implemented by pass stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health is the liveness probe.  It returns a plain text "ok" with 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready is the readiness probe: 200 when the pass store answers a ping
// within two seconds, 503 otherwise.  A nil pinger is always ready.
func Ready(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if p == nil {
			return c.String(http.StatusOK, "ready")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "pass store unreachable"})
		}
		return c.String(http.StatusOK, "ready")
	}
}
