package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
)

type Handler struct {
	trail *Trail
}

func NewHandler(trail *Trail) *Handler {
	return &Handler{trail: trail}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin"))
	g.GET("/audit", h.List)
}

// List returns the entries recorded against one target, newest first.
func (h *Handler) List(c echo.Context) error {
	targetType := c.QueryParam("target_type")
	if targetType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target_type is required")
	}
	targetID, err := strconv.ParseInt(c.QueryParam("target_id"), 10, 64)
	if err != nil || targetID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "target_id must be a positive integer")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	entries, err := h.trail.ListByTarget(c.Request().Context(), targetType, targetID, limit)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}
