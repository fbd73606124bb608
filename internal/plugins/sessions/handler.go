package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nijjara/erp/internal/apperror"
	"github.com/nijjara/erp/internal/plugins/audit"
)

// Handler exposes the administrative session surface. End users never call
// these endpoints; their sessions are managed through the auth plugin.
type Handler struct {
	store SessionStore
	audit audit.AuditService
}

// NewHandler creates a sessions admin handler.
func NewHandler(store SessionStore, auditSvc audit.AuditService) *Handler {
	return &Handler{store: store, audit: auditSvc}
}

// List handles GET /api/admin/sessions
// Returns every currently active session.
func (h *Handler) List(c echo.Context) error {
	sessions, err := h.store.ListActive(c.Request().Context())
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// Terminate handles DELETE /api/admin/sessions/:id
// Revokes a single session by its token.
func (h *Handler) Terminate(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("id")
	if sessionID == "" {
		return apperror.NewBadRequest("session id is required")
	}

	found, err := h.store.Revoke(ctx, sessionID)
	if err != nil {
		return err
	}
	if !found {
		return apperror.NewNotFound("session")
	}

	_ = h.audit.Record(ctx, audit.EventSessionRevoked, "", c.RealIP(), c.Request().UserAgent(), map[string]any{
		"scope": "single",
	})

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Session terminated",
	})
}

// TerminateUser handles DELETE /api/admin/sessions/user/:userId
// Revokes every active session a user holds (force logout).
func (h *Handler) TerminateUser(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("userId")
	if userID == "" {
		return apperror.NewBadRequest("user id is required")
	}

	n, err := h.store.RevokeAllForUser(ctx, userID)
	if err != nil {
		return err
	}

	_ = h.audit.Record(ctx, audit.EventSessionRevoked, userID, c.RealIP(), c.Request().UserAgent(), map[string]any{
		"scope":   "user",
		"revoked": n,
	})

	return c.JSON(http.StatusOK, map[string]any{
		"message": "User sessions terminated",
		"revoked": n,
	})
}

// Reap handles POST /api/admin/sessions/reap
// Sweeps expired sessions on demand. The sweep also runs opportunistically
// on every login, so this exists for operators and scheduled jobs.
func (h *Handler) Reap(c echo.Context) error {
	n, err := h.store.ReapExpired(c.Request().Context())
	if err != nil {
		return apperror.NewInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Expired sessions reaped",
		"reaped":  n,
	})
}
