package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nijjara/erp/internal/plugins/audit"
	"github.com/nijjara/erp/internal/plugins/auth"
	"github.com/nijjara/erp/internal/plugins/bootstrap"
	"github.com/nijjara/erp/internal/plugins/directory"
	"github.com/nijjara/erp/internal/plugins/lockout"
	"github.com/nijjara/erp/internal/plugins/sessions"
	"github.com/nijjara/erp/internal/plugins/settings"
)

// RegisterRoutes builds every plugin's dependency chain and mounts all
// routes. This is the single place where the wiring is aggregated; when a
// new plugin is added, it is assembled and registered here.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container orchestration.
	e.GET("/healthz", a.healthz)

	// --- Plugin assembly ---

	auditSvc := audit.NewAuditService(audit.NewEventRepository(a.DB))

	directorySvc := directory.NewDirectoryService(directory.NewUserRepository(a.DB))

	sessionStore := sessions.NewSessionStore(sessions.NewSessionRepository(a.DB))

	gate := lockout.NewGate(lockout.NewRedisStore(a.Redis), lockout.Policy{
		MaxFailedAttempts: a.Config.Auth.MaxFailedAttempts,
		LockoutDuration:   a.Config.Auth.LockoutDuration,
		AttemptWindow:     a.Config.Auth.AttemptWindow,
		KeyByIP:           a.Config.Auth.LockoutByIP,
	})

	settingsSvc := settings.NewSettingsService(settings.NewSettingRepository(a.DB))

	assembler := bootstrap.NewAssembler(bootstrap.NewGrantRepository(a.DB), settingsSvc)

	authSvc := auth.NewAuthService(directorySvc, gate, sessionStore, assembler, auditSvc, a.Config.Auth)

	// --- Public API routes ---

	api := e.Group("/api")
	authHandler := auth.NewHandler(authSvc, a.Config.IsProduction())
	auth.RegisterRoutes(api, authHandler, authSvc)

	// --- Administrative routes (session required) ---

	admin := api.Group("/admin", auth.RequireSession(authSvc))
	auth.RegisterAdminRoutes(admin, authHandler)
	sessions.RegisterRoutes(admin, sessions.NewHandler(sessionStore, auditSvc))
	settings.RegisterRoutes(admin, settings.NewHandler(settingsSvc))
	audit.RegisterRoutes(admin, audit.NewHandler(auditSvc))
}

// healthz verifies both backing stores are reachable.
func (a *App) healthz(c echo.Context) error {
	ctx := c.Request().Context()

	if err := a.DB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "database": "unreachable",
		})
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "redis": "unreachable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
