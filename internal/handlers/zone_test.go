package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"zone_controller/internal/models"
	"zone_controller/internal/service"
)

func TestZoneHandlers_GetState(t *testing.T) {
	mon := &mockMonitoring{state: models.ZoneState{
		ID:            1,
		Mode:          models.ModeOff,
		RequestedMode: models.ModeCoolOn,
		Origin:        models.OriginAuto,
		Cause:         models.CauseInterlockCooldown,
	}}
	s := &service.Service{Authorization: &mockAuth{parseID: 7}, Monitoring: mon}
	r := newTestRouter(s)

	// requires auth
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/zone/state", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/zone/state", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("state status=%d, body=%s", w.Code, w.Body.String())
	}
	var st models.ZoneState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if st.Mode != models.ModeOff || st.RequestedMode != models.ModeCoolOn || st.Cause != models.CauseInterlockCooldown {
		t.Fatalf("unexpected state: %+v", st)
	}

	mon.err = errors.New("db down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/zone/state", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestZoneHandlers_Healthz(t *testing.T) {
	cases := []struct {
		name   string
		report service.HealthReport
		err    error
		want   int
	}{
		{"healthy", service.HealthReport{Healthy: true, Status: "ok", Mode: models.ModeOff}, nil, http.StatusOK},
		{"stale reading", service.HealthReport{Status: "degraded", Errors: []string{"STALE_READING"}}, nil, http.StatusServiceUnavailable},
		{"state unavailable", service.HealthReport{}, errors.New("db down"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := &service.Service{Monitoring: &mockMonitoring{health: tc.report, err: tc.err}}
			r := newTestRouter(s)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestZoneHandlers_HealthAndMetrics(t *testing.T) {
	gauge := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("zone_uptime_seconds 1\n"))
	})
	h := NewHandler(&service.Service{}, nil, gauge)
	r := h.InitRoutes()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), statusOK) {
		t.Fatalf("health status=%d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "zone_uptime_seconds") {
		t.Fatalf("metrics status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestZoneHandlers_NoMetricsRoute(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a metrics handler, got %d", w.Code)
	}
}
