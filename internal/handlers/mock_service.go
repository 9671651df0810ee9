package handlers

import (
	"context"
	"errors"
	"time"

	"energy_dashboard/internal/chart"
	"energy_dashboard/internal/models"
	"energy_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

var errFake = errors.New("fake failure")

type mockDashboard struct {
	snap      service.Snapshot
	switchErr error
	drillCtx  models.DrillDownContext
	drillPts  []models.CostPoint
	drillErr  error
	years     []int
	yearsErr  error

	lastSwitch  models.ModeState
	lastDrillTs int64
	switchCalls int
	closeCalls  int
	drillCalls  int
}

func (m *mockDashboard) Snapshot() service.Snapshot { return m.snap }

func (m *mockDashboard) SwitchMode(ctx context.Context, next models.ModeState) error {
	m.switchCalls++
	m.lastSwitch = next
	return m.switchErr
}

func (m *mockDashboard) OpenDrillDown(ctx context.Context, timestampMs int64) (models.DrillDownContext, []models.CostPoint, error) {
	m.drillCalls++
	m.lastDrillTs = timestampMs
	return m.drillCtx, m.drillPts, m.drillErr
}

func (m *mockDashboard) CloseDrillDown() { m.closeCalls++ }

func (m *mockDashboard) Years(ctx context.Context) ([]int, error) {
	return m.years, m.yearsErr
}

type mockNoticeLog struct {
	resp     []models.Notification
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastKind string
}

func (m *mockNoticeLog) List(ctx context.Context, f service.NoticeFilter) ([]models.Notification, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastKind = f.Kind
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, chart.NewHub(), nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
