package access

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
	"github.com/medplatform/dossier/internal/platform/httputil"
)

type Handler struct {
	gate *Gate
}

func NewHandler(gate *Gate) *Handler {
	return &Handler{gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("physician"))
	g.GET("/patients/:patientId/access/:operation", h.CanMutate)
}

// CanMutate answers whether the caller may perform :operation, optionally
// against ?target=<id>, without performing it.
func (h *Handler) CanMutate(c echo.Context) error {
	actor, err := httputil.Actor(c)
	if err != nil {
		return err
	}
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	op, err := ParseOperation(c.Param("operation"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	check := Check{Op: op}
	if t := c.QueryParam("target"); t != "" {
		check.Target, err = strconv.ParseInt(t, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid target id")
		}
	}

	d, err := h.gate.CanMutate(c.Request().Context(), actor, patientID, check)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}
