package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"energy_dashboard/internal/models"
	"energy_dashboard/internal/repository"
)

// Dashboard exposes the analytics engine to the HTTP layer.
type Dashboard interface {
	Snapshot() Snapshot
	SwitchMode(ctx context.Context, next models.ModeState) error
	OpenDrillDown(ctx context.Context, timestampMs int64) (models.DrillDownContext, []models.CostPoint, error)
	CloseDrillDown()
	Years(ctx context.Context) ([]int, error)
}

// NoticeFilter narrows a notification-log query.
type NoticeFilter struct {
	From time.Time
	To   time.Time
	Kind string
}

// NoticeLog exposes the persisted notification history.
type NoticeLog interface {
	List(ctx context.Context, f NoticeFilter) ([]models.Notification, error)
}

// Service aggregates the sub-services consumed by the handlers.
type Service struct {
	Dashboard
	Notices NoticeLog
}

// NewService wires the controller and the storage-backed notice log.
func NewService(controller *Controller, repos *repository.Repository) *Service {
	return &Service{
		Dashboard: controller,
		Notices:   NewNoticeLogService(repos.Notices),
	}
}

// NoticeLogService reads the notification history with filter validation.
type NoticeLogService struct {
	notices repository.NoticeRepo
}

func NewNoticeLogService(notices repository.NoticeRepo) *NoticeLogService {
	return &NoticeLogService{notices: notices}
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

func (s *NoticeLogService) List(ctx context.Context, f NoticeFilter) ([]models.Notification, error) {
	from, to := normalizeToUTC(f.From), normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, errInvalidTimeRange
	}
	return s.notices.List(ctx, from, to, strings.TrimSpace(strings.ToUpper(f.Kind)))
}

// normalizeToUTC returns t in UTC, preserving zero values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
