package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler exposes the audit trail to administrators.
type Handler struct {
	service AuditService
}

// NewHandler creates an audit handler.
func NewHandler(service AuditService) *Handler {
	return &Handler{service: service}
}

// List handles GET /api/admin/events?type=login.failed&page=2
func (h *Handler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))

	events, total, err := h.service.ListEvents(c.Request().Context(), c.QueryParam("type"), page)
	if err != nil {
		return err
	}
	if events == nil {
		events = []Event{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"events": events,
		"total":  total,
	})
}

// RegisterRoutes mounts the audit endpoints onto the given group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("/events", h.List)
}
