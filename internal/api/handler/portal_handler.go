package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sentrydesk/access-system/internal/core/ports"
)

// PortalHandler serves the role-gated portal areas. Each endpoint just
// reflects the area and the session user; the real portal content lives in
// the consuming UI.
type PortalHandler struct {
	sessions ports.SessionManager
}

func NewPortalHandler(sessions ports.SessionManager) *PortalHandler {
	if sessions == nil {
		panic("handler: NewPortalHandler called with nil session manager")
	}
	return &PortalHandler{sessions: sessions}
}

// Admin is reachable by admins only.
//
// @Summary      Admin portal area
// @Tags         portal
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  map[string]string
// @Router       /portal/admin [get]
func (h *PortalHandler) Admin(c echo.Context) error {
	return h.area(c, "admin")
}

// Shifts is reachable by employees and admins.
//
// @Summary      Shift schedule area
// @Tags         portal
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  map[string]string
// @Router       /portal/shifts [get]
func (h *PortalHandler) Shifts(c echo.Context) error {
	return h.area(c, "shifts")
}

// Rounds is reachable by guards and admins.
//
// @Summary      Guard rounds area
// @Tags         portal
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  map[string]string
// @Router       /portal/rounds [get]
func (h *PortalHandler) Rounds(c echo.Context) error {
	return h.area(c, "rounds")
}

func (h *PortalHandler) area(c echo.Context, name string) error {
	state := h.sessions.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"area": name,
		"user": state.CurrentUser,
	})
}
