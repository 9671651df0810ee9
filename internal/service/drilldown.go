package service

import (
	"context"
	"time"

	"energy_dashboard/internal/models"
)

// DetailAPI is the slice of the backend client the drill-down needs.
type DetailAPI interface {
	Detailed(ctx context.Context, from, to time.Time, detail models.Granularity) ([]models.CostPoint, error)
}

// DrillDownFetcher plans and fetches finer-granularity series for a selected
// historical point. At most one drill-down level is active at a time; the
// context is discarded when the detail view closes and never cached across
// sessions.
type DrillDownFetcher struct {
	api DetailAPI
}

// NewDrillDownFetcher binds the backend detail endpoint.
func NewDrillDownFetcher(api DetailAPI) *DrillDownFetcher {
	return &DrillDownFetcher{api: api}
}

// Plan decides the next drill-down context for a point selected at t.
// A multi-day Range view drills to hour detail across t's calendar day;
// anything else drills to minute detail across t's clock hour. From an
// hour-level view one further minute-level step is allowed; a selection
// while minute detail is showing is a no-op and returns false.
func (f *DrillDownFetcher) Plan(mode models.Mode, t time.Time, active *models.DrillDownContext) (models.DrillDownContext, bool) {
	if active != nil && active.Granularity == models.GranularityMinute {
		return models.DrillDownContext{}, false
	}

	if active == nil && mode == models.ModeRange {
		dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return models.DrillDownContext{
			Origin:            t,
			Granularity:       models.GranularityHour,
			ParentGranularity: models.GranularityDay,
			From:              dayStart,
			To:                dayStart.Add(24*time.Hour - time.Second),
		}, true
	}

	parent := models.GranularityHour
	if active != nil {
		parent = active.Granularity
	}
	hourStart := t.Truncate(time.Hour)
	return models.DrillDownContext{
		Origin:            t,
		Granularity:       models.GranularityMinute,
		ParentGranularity: parent,
		From:              hourStart,
		To:                hourStart.Add(time.Hour - time.Second),
	}, true
}

// Fetch retrieves the series for a planned context. The backend names the
// detail level after the spanned window, not the step: an hour-step series
// across a day is detail_type=day, a minute-step series is detail_type=hour.
func (f *DrillDownFetcher) Fetch(ctx context.Context, d models.DrillDownContext) ([]models.CostPoint, error) {
	detail := models.GranularityHour
	if d.Granularity == models.GranularityHour {
		detail = models.GranularityDay
	}
	return f.api.Detailed(ctx, d.From, d.To, detail)
}
