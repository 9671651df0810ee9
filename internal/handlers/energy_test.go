package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"energy_dashboard/internal/models"
	"energy_dashboard/internal/service"
)

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := &service.Service{Dashboard: &mockDashboard{}, Notices: &mockNoticeLog{}}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
}

func TestGetSummary_FormatsByMode(t *testing.T) {
	realtimeSnap := service.Snapshot{
		Generation: 3,
		Mode:       models.ModeState{Mode: models.ModeRealTime, TickInterval: time.Second},
		Layout:     models.LayoutSingleColumn,
		Rates:      models.DefaultRates(),
		Stats: models.AggregateResult{
			TotalEnergyWh:  230.5, // live view carries instantaneous watts here
			TotalCost:      0.0576,
			AvgLoadPercent: 47,
		},
	}
	historicalSnap := service.Snapshot{
		Generation: 4,
		Mode:       models.ModeState{Mode: models.ModeDay},
		Layout:     models.LayoutTwoColumn,
		Rates:      models.DefaultRates(),
		Stats: models.AggregateResult{
			TotalEnergyWh:  5400,
			TotalCost:      1.35,
			AvgLoadPercent: 31,
		},
	}

	tests := []struct {
		name     string
		snap     service.Snapshot
		wantKey  string
		wantVal  string
		wantCost string
	}{
		{name: "realtime shows watts and live cost", snap: realtimeSnap, wantKey: "power", wantVal: "230.50 W", wantCost: "0.0576 EUR"},
		{name: "historical shows energy and total cost", snap: historicalSnap, wantKey: "energy", wantVal: "5.40 kWh", wantCost: "1.35 EUR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash := &mockDashboard{snap: tt.snap}
			r := newTestRouter(&service.Service{Dashboard: dash, Notices: &mockNoticeLog{}})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/energy/summary", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}

			var resp struct {
				Generation uint64            `json:"generation"`
				Display    map[string]string `json:"display"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Generation != tt.snap.Generation {
				t.Errorf("generation = %d, want %d", resp.Generation, tt.snap.Generation)
			}
			if got := resp.Display[tt.wantKey]; got != tt.wantVal {
				t.Errorf("display[%q] = %q, want %q", tt.wantKey, got, tt.wantVal)
			}
			if got := resp.Display["cost"]; got != tt.wantCost {
				t.Errorf("display[cost] = %q, want %q", got, tt.wantCost)
			}
		})
	}
}

func TestGetDistribution(t *testing.T) {
	dash := &mockDashboard{snap: service.Snapshot{
		Rates: models.DefaultRates(),
		Buckets: []models.Bucket{
			{Period: models.PeriodMorning, Cost: 0.5},
			{Period: models.PeriodAfternoon, Cost: 0.25},
			{Period: models.PeriodEvening, Cost: 0},
			{Period: models.PeriodNight, Cost: 0.25},
		},
		BucketTotal: 1.0,
	}}
	r := newTestRouter(&service.Service{Dashboard: dash, Notices: &mockNoticeLog{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/energy/distribution", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Buckets []models.Bucket   `json:"buckets"`
		Total   float64           `json:"total"`
		Display map[string]string `json:"display"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Buckets) != 4 || resp.Total != 1.0 {
		t.Fatalf("buckets = %+v, total = %v", resp.Buckets, resp.Total)
	}
	if resp.Display["total"] != "1.00 EUR" {
		t.Errorf("display total = %q", resp.Display["total"])
	}
}

func TestSetMode(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		switchErr  error
		wantStatus int
		check      func(t *testing.T, dash *mockDashboard)
	}{
		{
			name:       "day mode parses the date",
			body:       `{"mode":"day","day":"2026-08-10"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, dash *mockDashboard) {
				if dash.switchCalls != 1 {
					t.Fatalf("SwitchMode calls = %d", dash.switchCalls)
				}
				if dash.lastSwitch.Mode != models.ModeDay {
					t.Errorf("mode = %q", dash.lastSwitch.Mode)
				}
				if dash.lastSwitch.Day.Day() != 10 {
					t.Errorf("day = %v", dash.lastSwitch.Day)
				}
			},
		},
		{
			name:       "realtime converts tick interval",
			body:       `{"mode":"realtime","tick_interval_ms":2000}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, dash *mockDashboard) {
				if dash.lastSwitch.TickInterval != 2*time.Second {
					t.Errorf("tick = %v", dash.lastSwitch.TickInterval)
				}
			},
		},
		{
			name:       "range passes both endpoints",
			body:       `{"mode":"range","range_from":"2026-08-01","range_to":"2026-08-20"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, dash *mockDashboard) {
				if dash.lastSwitch.RangeFrom.IsZero() || dash.lastSwitch.RangeTo.IsZero() {
					t.Errorf("range endpoints = %v..%v", dash.lastSwitch.RangeFrom, dash.lastSwitch.RangeTo)
				}
			},
		},
		{
			name:       "unknown mode rejected before the service",
			body:       `{"mode":"weekly"}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, dash *mockDashboard) {
				if dash.switchCalls != 0 {
					t.Errorf("SwitchMode reached with an invalid mode")
				}
			},
		},
		{
			name:       "malformed date rejected",
			body:       `{"mode":"day","day":"10/08/2026"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing mode rejected by binding",
			body:       `{"day":"2026-08-10"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "service validation failure surfaces as 400",
			body:       `{"mode":"day","day":"2026-08-10"}`,
			switchErr:  errFake,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash := &mockDashboard{switchErr: tt.switchErr}
			r := newTestRouter(&service.Service{Dashboard: dash, Notices: &mockNoticeLog{}})

			w := postJSON(t, r, "/api/v1/energy/mode", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.check != nil {
				tt.check(t, dash)
			}
		})
	}
}

func TestOpenDrillDown(t *testing.T) {
	ctxPlan := models.DrillDownContext{
		Granularity:       models.GranularityMinute,
		ParentGranularity: models.GranularityHour,
	}
	dash := &mockDashboard{
		drillCtx: ctxPlan,
		drillPts: []models.CostPoint{{TimestampMs: 1000, Cost: 0.1}},
	}
	r := newTestRouter(&service.Service{Dashboard: dash, Notices: &mockNoticeLog{}})

	w := postJSON(t, r, "/api/v1/energy/drilldown", `{"timestamp_ms":1000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if dash.lastDrillTs != 1000 {
		t.Errorf("timestamp forwarded as %d", dash.lastDrillTs)
	}
	var resp struct {
		Context models.DrillDownContext `json:"context"`
		Series  []models.CostPoint      `json:"series"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Context.Granularity != models.GranularityMinute || len(resp.Series) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestOpenDrillDown_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "stale response maps to conflict", err: service.ErrStale, wantStatus: http.StatusConflict},
		{name: "validation failure maps to bad request", err: errFake, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash := &mockDashboard{drillErr: tt.err}
			r := newTestRouter(&service.Service{Dashboard: dash, Notices: &mockNoticeLog{}})

			w := postJSON(t, r, "/api/v1/energy/drilldown", `{"timestamp_ms":1}`)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestCloseDrillDown(t *testing.T) {
	dash := &mockDashboard{}
	r := newTestRouter(&service.Service{Dashboard: dash, Notices: &mockNoticeLog{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/energy/drilldown", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if dash.closeCalls != 1 {
		t.Fatalf("CloseDrillDown calls = %d", dash.closeCalls)
	}
}

func TestGetYears(t *testing.T) {
	dash := &mockDashboard{years: []int{2024, 2025, 2026}}
	r := newTestRouter(&service.Service{Dashboard: dash, Notices: &mockNoticeLog{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/energy/years", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "2026") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestGetYears_BackendFailureIsBadGateway(t *testing.T) {
	dash := &mockDashboard{yearsErr: errFake}
	r := newTestRouter(&service.Service{Dashboard: dash, Notices: &mockNoticeLog{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/energy/years", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}
