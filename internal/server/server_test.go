package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cuacadesa/internal/dashboard"
	"cuacadesa/internal/models"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeDashboard struct {
	err       error
	noInsight bool
}

func points(n int, v float64) []models.ForecastPoint {
	out := make([]models.ForecastPoint, n)
	for i := range out {
		out[i] = models.ForecastPoint{Date: day.AddDate(0, 0, i), Value: v}
	}
	return out
}

func (f *fakeDashboard) Build(ctx context.Context) (*models.Dashboard, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := &models.Dashboard{
		Site:        "Ngadirejo",
		GeneratedAt: day,
		Panels: map[string]models.Panel{
			models.Rainfall:  {Variable: models.Rainfall, Forecast: points(3, 1.5)},
			models.WindSpeed: {Variable: models.WindSpeed, Forecast: points(3, 2)},
		},
	}
	if !f.noInsight {
		d.Insight = &models.Insight{Status: models.Status{Code: "normal", Label: "Normal", Severity: models.SeveritySuccess}}
	}
	return d, nil
}

func (f *fakeDashboard) Panel(ctx context.Context, variable string) (*models.Panel, error) {
	if f.err != nil {
		return nil, f.err
	}
	if variable != models.Rainfall && variable != models.WindSpeed {
		return nil, fmt.Errorf("%w: %s", dashboard.ErrUnknownVariable, variable)
	}
	return &models.Panel{Variable: variable, Forecast: points(2, 4.3)}, nil
}

type fakeStore struct {
	limit int
}

func (f *fakeStore) GetAdvisories(site string, limit int) ([]models.AdvisoryRecord, error) {
	f.limit = limit
	return []models.AdvisoryRecord{{ID: 1, Site: site, Status: "normal"}}, nil
}

func do(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(&fakeDashboard{}, nil, Options{Site: "Ngadirejo"})

	w := do(t, s, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", body["status"])
	}
	if body["site"] != "Ngadirejo" {
		t.Errorf("site = %q, want Ngadirejo", body["site"])
	}
}

func TestHandleDashboard(t *testing.T) {
	s := NewServer(&fakeDashboard{}, nil, Options{})

	w := do(t, s, "/api/dashboard")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", w.Code, http.StatusOK)
	}

	var d models.Dashboard
	if err := json.NewDecoder(w.Body).Decode(&d); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(d.Panels) != 2 {
		t.Errorf("got %d panels, want 2", len(d.Panels))
	}
	if d.Insight == nil || d.Insight.Status.Code != "normal" {
		t.Errorf("unexpected insight %+v", d.Insight)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing data", fmt.Errorf("%w: rain.csv not found", dashboard.ErrMissingData), http.StatusServiceUnavailable},
		{"unknown variable", dashboard.ErrUnknownVariable, http.StatusNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeDashboard{err: tt.err}, nil, Options{})
			w := do(t, s, "/api/dashboard")
			if w.Code != tt.want {
				t.Errorf("status = %v, want %v", w.Code, tt.want)
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("body %q has no error field", w.Body.String())
			}
		})
	}
}

func TestHandlePanel(t *testing.T) {
	s := NewServer(&fakeDashboard{}, nil, Options{})

	if w := do(t, s, "/api/panels/rainfall"); w.Code != http.StatusOK {
		t.Errorf("rainfall status = %v, want 200", w.Code)
	}
	if w := do(t, s, "/api/panels/humidity"); w.Code != http.StatusNotFound {
		t.Errorf("humidity status = %v, want 404", w.Code)
	}
}

func TestHandleInsights(t *testing.T) {
	s := NewServer(&fakeDashboard{noInsight: true}, nil, Options{})

	w := do(t, s, "/api/insights")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["insight"] != nil {
		t.Errorf("insight = %v, want null", body["insight"])
	}
}

func TestHandleInsightHistory(t *testing.T) {
	if w := do(t, NewServer(&fakeDashboard{}, nil, Options{}), "/api/insights/history"); w.Code != http.StatusNotFound {
		t.Errorf("status without store = %v, want 404", w.Code)
	}

	store := &fakeStore{}
	s := NewServer(&fakeDashboard{}, store, Options{Site: "Ngadirejo"})

	w := do(t, s, "/api/insights/history?limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", w.Code)
	}
	if store.limit != 5 {
		t.Errorf("limit = %d, want 5", store.limit)
	}

	do(t, s, "/api/insights/history?limit=abc")
	if store.limit != 20 {
		t.Errorf("default limit = %d, want 20", store.limit)
	}
}

func TestHandleForecastCSV(t *testing.T) {
	s := NewServer(&fakeDashboard{}, nil, Options{Precision: 1})

	w := do(t, s, "/api/forecast/windspeed.csv")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	want := "date,value\n2024-01-01,4.3\n2024-01-02,4.3\n"
	if w.Body.String() != want {
		t.Errorf("body = %q, want %q", w.Body.String(), want)
	}
}

func TestHandleCombinedCSV(t *testing.T) {
	s := NewServer(&fakeDashboard{}, nil, Options{Precision: 2})

	w := do(t, s, "/api/forecast.csv")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", w.Code)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 4 || lines[1] != "2024-01-01,1.50,2.00" {
		t.Errorf("unexpected csv %q", w.Body.String())
	}

	if w := do(t, NewServer(&fakeDashboard{noInsight: true}, nil, Options{}), "/api/forecast.csv"); w.Code != http.StatusConflict {
		t.Errorf("status without advisory = %v, want 409", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s := NewServer(&fakeDashboard{}, nil, Options{RateLimit: 0.001, Burst: 1})

	if w := do(t, s, "/api/panels/rainfall"); w.Code != http.StatusOK {
		t.Fatalf("first status = %v, want 200", w.Code)
	}
	if w := do(t, s, "/api/panels/rainfall"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %v, want 429", w.Code)
	}
	// health is not limited
	if w := do(t, s, "/health"); w.Code != http.StatusOK {
		t.Errorf("health status = %v, want 200", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer(&fakeDashboard{}, nil, Options{})
	do(t, s, "/health")

	w := do(t, s, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cuacadesa_http_requests_total") {
		t.Error("metrics output misses the request counter")
	}
}
