package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nijjara/erp/internal/middleware"
)

// Per-IP rate limit on the login endpoint. The per-identity lockout gate is
// the real defense; this caps raw request volume from one address.
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// RegisterRoutes mounts the authentication endpoints under /auth on the
// given group.
func RegisterRoutes(g *echo.Group, h *Handler, service AuthService) {
	authGroup := g.Group("/auth")

	authGroup.POST("/login", h.Login, middleware.RateLimit(loginRateLimit, loginRateWindow))
	authGroup.POST("/logout", h.Logout)
	authGroup.POST("/verify", h.Verify)

	authGroup.POST("/password", h.ChangePassword, RequireSession(service))
}

// RegisterAdminRoutes mounts the administrative credential endpoints onto
// the (already session-guarded) admin group.
func RegisterAdminRoutes(g *echo.Group, h *Handler) {
	g.PUT("/users/:userId/password", h.AdminSetPassword)
}
