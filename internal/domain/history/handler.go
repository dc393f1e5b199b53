package history

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
	"github.com/medplatform/dossier/internal/platform/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("physician"))
	g.GET("/patients/:patientId/history", h.List)
	g.POST("/patients/:patientId/history", h.Add)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	entries, err := h.svc.List(c.Request().Context(), patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

type addRequest struct {
	Kind        Kind    `json:"kind"`
	Description string  `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Chronic     bool    `json:"chronic"`
}

func (h *Handler) Add(c echo.Context) error {
	actor, err := httputil.Actor(c)
	if err != nil {
		return err
	}
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	var req addRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	in := Input{Kind: req.Kind, Description: req.Description, Chronic: req.Chronic}
	if in.StartDate, err = httputil.ParseOptionalDate(req.StartDate); err != nil {
		return err
	}
	if in.EndDate, err = httputil.ParseOptionalDate(req.EndDate); err != nil {
		return err
	}

	e, err := h.svc.Add(c.Request().Context(), actor, patientID, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, e)
}
