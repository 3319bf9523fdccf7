package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventhub/internal/handler"
	"github.com/iliyamo/eventhub/internal/middleware"
	"github.com/iliyamo/eventhub/internal/passclient"
)

// RegisterInternal registers the internal pass service consumed by
// passclient.  The routes require the shared internal key and refuse every
// call when none is configured; verification is rate limited like the staff
// route.
func RegisterInternal(e *echo.Echo, h *handler.InternalPassHandler, internalKey string, limiter echo.MiddlewareFunc) {
	g := e.Group("/internal", middleware.InternalKey(passclient.InternalKeyHeader, internalKey))
	g.GET("/getPasses", h.GetPasses)
	g.POST("/passes", h.CreatePass)
	g.POST("/verify", h.Verify, limiter)
}
