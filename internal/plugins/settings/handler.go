package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nijjara/erp/internal/apperror"
)

// Handler exposes the administrative settings endpoints.
type Handler struct {
	service SettingsService
}

// NewHandler creates a settings handler.
func NewHandler(service SettingsService) *Handler {
	return &Handler{service: service}
}

// List handles GET /api/admin/settings
func (h *Handler) List(c echo.Context) error {
	snapshot, err := h.service.Snapshot(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"settings": snapshot})
}

// Update handles PUT /api/admin/settings/:key
func (h *Handler) Update(c echo.Context) error {
	key := c.Param("key")

	var body struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&body); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}

	if err := h.service.Set(c.Request().Context(), key, body.Value); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Setting updated",
		"key":     key,
	})
}

// RegisterRoutes mounts the settings endpoints onto the given group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("/settings", h.List)
	g.PUT("/settings/:key", h.Update)
}
