package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventhub/internal/handler"
	"github.com/iliyamo/eventhub/internal/middleware"
)

// RegisterStudent registers the student-scoped pass endpoint.  It requires a
// valid session and the student role; the handler reads the user id from
// the session, never from the body.
func RegisterStudent(e *echo.Echo, h *handler.PassHandler, jwtSecret string) {
	g := e.Group(
		"/student",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleStudent),
	)
	g.POST("/issue-pass", h.IssuePass)
}

// RegisterStaff registers the scanning endpoint used by event staff.  The
// limiter runs after authentication so the "user" key strategies see the
// session subject.
func RegisterStaff(e *echo.Echo, h *handler.PassHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleManager, middleware.RoleAdmin),
	)
	g.POST("/verify-pass", h.VerifyPass, limiter)
}
