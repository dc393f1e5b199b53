package measurement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/dossier/internal/platform/auth"
)

func newTestServer(f *fixture) *echo.Echo {
	e := echo.New()
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithActor(req.Context(), physician)))
			return next(c)
		}
	})
	NewHandler(f.svc).RegisterRoutes(api)
	return e
}

func put(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_UpdateEmptyStringClearsHalf(t *testing.T) {
	f := newFixture(1)
	d := day0(2024, 3, 1)
	m := f.repo.seed(1, KindMass, 70, d)
	s := f.repo.seed(1, KindStature, 175, d)
	e := newTestServer(f)

	ref := Compound{MassID: m.ID, StatureID: s.ID}.String()
	rec := put(e, "/api/v1/patients/1/measurements/"+ref, `{"mass":"","stature":"176.5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list []*Composite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Mass)
	require.NotNil(t, list[0].Stature)
	assert.Equal(t, 176.5, *list[0].Stature)

	_, err := f.repo.Get(context.Background(), 1, m.ID)
	assert.Error(t, err)
}

func TestHandler_UpdateRejectsNonNumericValue(t *testing.T) {
	f := newFixture(1)
	m := f.repo.seed(1, KindMass, 70, day0(2024, 3, 1))
	e := newTestServer(f)

	rec := put(e, "/api/v1/patients/1/measurements/"+Compound{MassID: m.ID}.String(), `{"mass":"heavy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 70.0, f.repo.rows[m.ID].Value)
}

func TestLenientNumber(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{`72.5`, ptr(72.5)},
		{`"72.5"`, ptr(72.5)},
		{`""`, nil},
		{`" "`, nil},
		{`null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var req measurementRequest
			require.NoError(t, json.Unmarshal([]byte(`{"mass":`+tt.in+`}`), &req))
			assert.Equal(t, tt.want, req.Mass.Value)
		})
	}
}
