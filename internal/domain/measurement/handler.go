package measurement

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

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
	g.GET("/patients/:patientId/measurements", h.List)
	g.POST("/patients/:patientId/measurements", h.Add)
	g.PUT("/patients/:patientId/measurements/:ref", h.Update)
	g.DELETE("/patients/:patientId/measurements/:ref", h.Delete)
}

// lenientNumber accepts a JSON number, a numeric string, null or "". Form
// clients send "" to clear a value, which decodes as absent.
type lenientNumber struct {
	Value *float64
}

func (n *lenientNumber) UnmarshalJSON(b []byte) error {
	n.Value = nil
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if !strings.HasPrefix(raw, `"`) {
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		n.Value = &f
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	n.Value = &f
	return nil
}

type measurementRequest struct {
	Mass    lenientNumber `json:"mass"`
	Stature lenientNumber `json:"stature"`
	Date    *string       `json:"date"`
	Note    *string       `json:"note"`
}

func (r measurementRequest) input() (Input, error) {
	in := Input{Mass: r.Mass.Value, Stature: r.Stature.Value, Note: r.Note}
	var err error
	in.Date, err = httputil.ParseOptionalDate(r.Date)
	return in, err
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	list, err := h.svc.List(c.Request().Context(), patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if list == nil {
		list = []*Composite{}
	}
	return c.JSON(http.StatusOK, list)
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
	var req measurementRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return err
	}
	created, err := h.svc.Add(c.Request().Context(), actor, patientID, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Update responds with the patient's regrouped measurements, since a
// compound or legacy update can change the references of the date.
func (h *Handler) Update(c echo.Context) error {
	actor, err := httputil.Actor(c)
	if err != nil {
		return err
	}
	patientID, err := httputil.ParamID(c, "patientId")
	if err != nil {
		return err
	}
	ref, err := ParseReference(c.Param("ref"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	var req measurementRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.svc.Update(ctx, actor, patientID, ref, in); err != nil {
		return apperr.ToHTTP(err)
	}
	list, err := h.svc.List(ctx, patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if list == nil {
		list = []*Composite{}
	}
	return c.JSON(http.StatusOK, list)
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
	ref, err := ParseReference(c.Param("ref"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.Delete(c.Request().Context(), actor, patientID, ref); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
