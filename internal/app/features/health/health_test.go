package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/stratavisit/internal/app/store/visitors"
	"github.com/dalemusser/stratavisit/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestHandler_Check_NoDatabase(t *testing.T) {
	reg := visitors.NewRegistry()
	reg.Table("a")
	reg.Table("b")
	h := NewHandler(nil, reg, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Check() status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Services["mongodb"] != "disabled" {
		t.Errorf("mongodb = %q, want disabled", resp.Services["mongodb"])
	}
	if resp.Tables != 2 {
		t.Errorf("tables = %d, want 2", resp.Tables)
	}
}

func TestHandler_Check_WithDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewHandler(db.Client(), visitors.NewRegistry(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Check() status = %d, want %d", rec.Code, http.StatusOK)
	}
	services := decode(t, rec)["services"].(map[string]any)
	if services["mongodb"] != "ok" {
		t.Errorf("mongodb = %v, want ok", services["mongodb"])
	}
}

func TestHandler_Ready(t *testing.T) {
	h := NewHandler(nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Ready() status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := decode(t, rec)["status"]; got != "ready" {
		t.Errorf("Ready() status = %v, want ready", got)
	}
}

func TestHandler_Live(t *testing.T) {
	h := NewHandler(nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Live() status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := decode(t, rec)["status"]; got != "alive" {
		t.Errorf("Live() status = %v, want alive", got)
	}
}

func TestRoutesAndRootEndpoints(t *testing.T) {
	h := NewHandler(nil, visitors.NewRegistry(), zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/health", Routes(h))
	MountRootEndpoints(r, h)

	for _, path := range []string{"/health", "/health/ready", "/health/live", "/ready", "/readyz", "/livez"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("GET %s status = %d, want 200", path, rec.Code)
			}
		})
	}
}
