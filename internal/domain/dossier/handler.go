package dossier

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
	"github.com/medplatform/dossier/internal/platform/httputil"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("physician"))
	g.GET("/patients/:patientId/dossier", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	actor, err := httputil.Actor(c)
	if err != nil {
		return err
	}
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	snap, err := h.engine.GetDossier(c.Request().Context(), patientID, actor)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, snap)
}
