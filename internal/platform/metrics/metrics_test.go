package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDossier("ok", time.Second)
	m.AccessDecision("add-note", true)
	m.AuditEntry("VIEW_DOSSIER")
	m.AuditPublishFailed()
	m.MeasurementMutation("add", "direct")
}

func TestCounters(t *testing.T) {
	m := New()
	m.AccessDecision("delete-treatment", false)
	m.AccessDecision("delete-treatment", false)
	m.AccessDecision("delete-treatment", true)
	m.AuditEntry("VIEW_DOSSIER")
	m.ObserveDossier("not_found", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.accessDecisions.WithLabelValues("delete-treatment", "deny")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.accessDecisions.WithLabelValues("delete-treatment", "allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditEntries.WithLabelValues("VIEW_DOSSIER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dossierRequests.WithLabelValues("not_found")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/patients/:patientId/dossier", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/5/dossier", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.httpRequests.WithLabelValues(http.MethodGet, "/patients/:patientId/dossier", "204")))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))
}
