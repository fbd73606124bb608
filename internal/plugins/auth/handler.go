package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nijjara/erp/internal/apperror"
)

// sessionCookieName is the HttpOnly cookie carrying the session token for
// browser clients. API clients send the token as a bearer token instead.
const sessionCookieName = "nijjara_session"

// Handler exposes the authentication endpoints.
type Handler struct {
	service AuthService

	// secureCookies marks the session cookie Secure in production.
	secureCookies bool
}

// NewHandler creates an auth handler.
func NewHandler(service AuthService, secureCookies bool) *Handler {
	return &Handler{service: service, secureCookies: secureCookies}
}

// Login handles POST /api/auth/login
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}

	// Connection-derived fields override anything the body claims.
	req.Client.IPAddress = c.RealIP()
	if req.Client.UserAgent == "" {
		req.Client.UserAgent = c.Request().UserAgent()
	}

	result, err := h.service.Authenticate(c.Request().Context(), req)
	if err != nil {
		return err
	}

	if result.Success {
		h.setSessionCookie(c, result.Token, *result.ExpiresAt)
		return c.JSON(http.StatusOK, result)
	}
	return c.JSON(h.rejectionStatus(result), result)
}

// rejectionStatus maps a failed LoginResult to its HTTP status.
func (h *Handler) rejectionStatus(result *LoginResult) int {
	switch {
	case result.LockedUntil != nil:
		return http.StatusLocked
	case result.Message == msgMissingCredentials:
		return http.StatusBadRequest
	case result.Message == msgAccountInactive:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

// Logout handles POST /api/auth/logout
// Succeeds even when the token is unknown; there is nothing useful to tell
// an attacker probing dead tokens.
func (h *Handler) Logout(c echo.Context) error {
	token := ExtractToken(c)

	client := ClientContext{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
	if err := h.service.Logout(c.Request().Context(), token, client); err != nil {
		return err
	}

	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out",
	})
}

// Verify handles GET /api/auth/verify
// Always returns 200 with the session's standing; the body's valid flag is
// the answer.
func (h *Handler) Verify(c echo.Context) error {
	validation, err := h.service.Verify(c.Request().Context(), ExtractToken(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, validation)
}

// ChangePassword handles POST /api/auth/password
// Mounted behind RequireSession; the acting user comes from the middleware.
func (h *Handler) ChangePassword(c echo.Context) error {
	userID, _ := c.Get(ContextUserID).(string)
	if userID == "" {
		return apperror.NewUnauthorized("Session required")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}

	if err := h.service.ChangePassword(c.Request().Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed. Sign in again with the new password.",
	})
}

// AdminSetPassword handles PUT /api/admin/users/:userId/password
// Provisions a credential without the current password. The target's
// sessions are revoked as part of the reset.
func (h *Handler) AdminSetPassword(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return apperror.NewBadRequest("user id is required")
	}

	var body struct {
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&body); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}

	if err := h.service.SetPassword(c.Request().Context(), userID, body.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Password set",
	})
}

func (h *Handler) setSessionCookie(c echo.Context, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// ExtractToken pulls the session token from the Authorization header
// (Bearer scheme) or, failing that, the session cookie. Returns "" when
// neither is present.
func ExtractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
