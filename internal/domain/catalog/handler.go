package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("physician"))
	g.GET("/medications", h.SearchMedications)
	g.GET("/allergies", h.SearchAllergies)
}

func (h *Handler) SearchMedications(c echo.Context) error {
	meds, err := h.svc.SearchMedications(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if meds == nil {
		meds = []*Medication{}
	}
	return c.JSON(http.StatusOK, meds)
}

func (h *Handler) SearchAllergies(c echo.Context) error {
	types, err := h.svc.SearchAllergies(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if types == nil {
		types = []*AllergyType{}
	}
	return c.JSON(http.StatusOK, types)
}
