package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/eventhub/internal/handler" // probes live in the handler package
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the liveness probe and the readiness probe, which
// pings the configured pass store.
func RegisterRoutes(e *echo.Echo, store handler.Pinger) {
	// Load balancers and orchestrators poll these.
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(store))
}
