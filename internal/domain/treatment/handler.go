package treatment

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
	g.GET("/patients/:patientId/treatments", h.List)
	g.POST("/patients/:patientId/treatments", h.Add)
	g.PUT("/patients/:patientId/treatments/:treatmentId", h.Update)
	g.DELETE("/patients/:patientId/treatments/:treatmentId", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	list, err := h.svc.ListActive(c.Request().Context(), patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if list == nil {
		list = []*Treatment{}
	}
	return c.JSON(http.StatusOK, list)
}

type addRequest struct {
	MedicationID      *int64  `json:"medication_id"`
	MedicationName    string  `json:"medication_name"`
	Posology          string  `json:"posology"`
	StartDate         *string `json:"start_date"`
	EndDate           *string `json:"end_date"`
	Permanent         bool    `json:"permanent"`
	Instructions      string  `json:"instructions"`
	Reminder          bool    `json:"reminder"`
	ReminderFrequency string  `json:"reminder_frequency"`
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
	in := AddInput{
		MedicationID:      req.MedicationID,
		MedicationName:    req.MedicationName,
		Posology:          req.Posology,
		Permanent:         req.Permanent,
		Instructions:      req.Instructions,
		Reminder:          req.Reminder,
		ReminderFrequency: req.ReminderFrequency,
	}
	if in.StartDate, err = httputil.ParseOptionalDate(req.StartDate); err != nil {
		return err
	}
	if in.EndDate, err = httputil.ParseOptionalDate(req.EndDate); err != nil {
		return err
	}

	t, err := h.svc.Add(c.Request().Context(), actor, patientID, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

type updateRequest struct {
	Posology          *string `json:"posology"`
	StartDate         *string `json:"start_date"`
	EndDate           *string `json:"end_date"`
	Permanent         *bool   `json:"permanent"`
	Instructions      *string `json:"instructions"`
	Reminder          *bool   `json:"reminder"`
	ReminderFrequency *string `json:"reminder_frequency"`
}

func (h *Handler) Update(c echo.Context) error {
	actor, err := httputil.Actor(c)
	if err != nil {
		return err
	}
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	id, err := httputil.ParamID(c, "treatmentId")
	if err != nil {
		return err
	}
	var req updateRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	in := UpdateInput{
		Posology:          req.Posology,
		Permanent:         req.Permanent,
		Instructions:      req.Instructions,
		Reminder:          req.Reminder,
		ReminderFrequency: req.ReminderFrequency,
	}
	if in.StartDate, err = httputil.ParseOptionalDate(req.StartDate); err != nil {
		return err
	}
	if in.EndDate, err = httputil.ParseOptionalDate(req.EndDate); err != nil {
		return err
	}

	t, err := h.svc.Update(c.Request().Context(), actor, patientID, id, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Delete(c echo.Context) error {
	actor, err := httputil.Actor(c)
	if err != nil {
		return err
	}
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	id, err := httputil.ParamID(c, "treatmentId")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, patientID, id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
