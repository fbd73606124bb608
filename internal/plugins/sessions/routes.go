package sessions

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the administrative session endpoints onto the given
// group. The caller wraps the group with session-required middleware.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("/sessions", h.List)
	g.DELETE("/sessions/:id", h.Terminate)
	g.DELETE("/sessions/user/:userId", h.TerminateUser)
	g.POST("/sessions/reap", h.Reap)
}
