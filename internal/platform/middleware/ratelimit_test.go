package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medplatform/dossier/internal/platform/auth"
)

func TestRateLimit_PerActor(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	// Denials are written through c.Error, so the status lands on the recorder.
	call := func(userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/1/dossier", nil)
		req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{UserID: userID}))
		rec := httptest.NewRecorder()
		if err := mw(ok)(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return rec
	}

	if rec := call(7); rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	rec := call(7)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for second request, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After 1, got %q", rec.Header().Get("Retry-After"))
	}
	if rec := call(8); rec.Code != http.StatusOK {
		t.Fatalf("other actor should have its own bucket, got %d", rec.Code)
	}
}

func TestRateLimitKey_FallsBackToIP(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	key, err := rateLimitKey(e.NewContext(req, httptest.NewRecorder()))
	if err != nil {
		t.Fatal(err)
	}
	if key != "ip:10.1.2.3" {
		t.Errorf("unexpected key %q", key)
	}
}
