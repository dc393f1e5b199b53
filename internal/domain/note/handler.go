package note

import (
	"net/http"
	"strconv"

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
	g.GET("/patients/:patientId/notes", h.List)
	g.POST("/patients/:patientId/notes", h.Add)
	g.PUT("/patients/:patientId/notes/:noteId", h.Update)
	g.DELETE("/patients/:patientId/notes/:noteId", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	notes, err := h.svc.List(c.Request().Context(), patientID, limit)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if notes == nil {
		notes = []*Note{}
	}
	return c.JSON(http.StatusOK, notes)
}

type noteRequest struct {
	Content   *string `json:"content"`
	Important *bool   `json:"important"`
	Category  *string `json:"category"`
	Date      *string `json:"note_date"`
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
	var req noteRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	var in Input
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.Important != nil {
		in.Important = *req.Important
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if in.Date, err = httputil.ParseOptionalDate(req.Date); err != nil {
		return err
	}

	n, err := h.svc.Add(c.Request().Context(), actor, patientID, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, n)
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
	id, err := httputil.ParamID(c, "noteId")
	if err != nil {
		return err
	}
	var req noteRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	in := UpdateInput{Content: req.Content, Important: req.Important, Category: req.Category}
	if in.Date, err = httputil.ParseOptionalDate(req.Date); err != nil {
		return err
	}

	n, err := h.svc.Update(c.Request().Context(), actor, patientID, id, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, n)
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
	id, err := httputil.ParamID(c, "noteId")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, patientID, id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
