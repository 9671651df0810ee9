package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"energy_dashboard/internal/models"
	"energy_dashboard/internal/service"
)

func TestGetNotifications_FiltersAndNormalizes(t *testing.T) {
	log := &mockNoticeLog{resp: []models.Notification{
		{ID: "n1", Kind: models.NoticeNetworkFailure, Message: "timeout"},
	}}
	r := newTestRouter(&service.Service{Dashboard: &mockDashboard{}, Notices: log})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/notifications/?from=2026-08-01&to=2026-08-30&kind=network_failure", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count         int                   `json:"count"`
		Notifications []models.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || len(resp.Notifications) != 1 {
		t.Fatalf("resp = %+v", resp)
	}

	if log.lastKind != "NETWORK_FAILURE" {
		t.Errorf("kind forwarded as %q, want normalized uppercase", log.lastKind)
	}
	wantFrom := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	if !log.lastFrom.Equal(wantFrom) {
		t.Errorf("from = %v, want %v", log.lastFrom, wantFrom)
	}
	// date-only 'to' becomes end-of-day inclusive
	wantTo := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)
	if !log.lastTo.Equal(wantTo) {
		t.Errorf("to = %v, want end of day %v", log.lastTo, wantTo)
	}
}

func TestGetNotifications_BadInputs(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "bad from", query: "?from=not-a-date"},
		{name: "bad to", query: "?to=31/12/2026"},
		{name: "inverted range", query: "?from=2026-08-30&to=2026-08-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Dashboard: &mockDashboard{}, Notices: &mockNoticeLog{}})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/"+tt.query, nil))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetNotifications_ServiceFailure(t *testing.T) {
	r := newTestRouter(&service.Service{Dashboard: &mockDashboard{}, Notices: &mockNoticeLog{err: errFake}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
