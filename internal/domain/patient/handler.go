package patient

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
	g.GET("/patients/:patientId", h.GetPatient)
	g.PUT("/patients/:patientId/profile", h.UpdateProfile)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

type profileRequest struct {
	ProfileUpdate
	BirthDate *string `json:"birth_date"`
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	actor, err := httputil.Actor(c)
	if err != nil {
		return err
	}
	id, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	var req profileRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	upd := req.ProfileUpdate
	if upd.BirthDate, err = httputil.ParseOptionalDate(req.BirthDate); err != nil {
		return err
	}

	p, err := h.svc.UpdateProfile(c.Request().Context(), actor, id, &upd)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}
