package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/nijjara/erp/internal/apperror"
)

// Context keys set by RequireSession for downstream handlers.
const (
	ContextUserID       = "user_id"
	ContextSessionToken = "session_token"
)

// RequireSession returns middleware that rejects requests without a valid
// session. On success the user ID and token are stored on the echo context.
func RequireSession(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ExtractToken(c)

			validation, err := service.Verify(c.Request().Context(), token)
			if err != nil {
				return err
			}
			if !validation.Valid {
				return apperror.NewUnauthorized(validation.Message)
			}

			c.Set(ContextUserID, validation.UserID)
			c.Set(ContextSessionToken, token)
			return next(c)
		}
	}
}
