package service

import (
	"errors"
	"fmt"
	"time"

	"energy_dashboard/internal/backend"
	"energy_dashboard/internal/config"
	"energy_dashboard/internal/models"
)

var (
	errUnknownMode  = errors.New("unknown display mode")
	errDayRequired  = errors.New("day mode requires a date")
	errBadDateRange = errors.New("range mode requires from <= to")
)

const (
	layoutClock = "15:04"
	layoutDate  = "2006-01-02"
)

// TimeRangeResolver owns the active display mode and derives backend query
// parameters from it. Transitions are validated and normalized here; the
// controller drives the accompanying resource teardown.
type TimeRangeResolver struct {
	state models.ModeState
	clock func() time.Time
}

// NewTimeRangeResolver starts with no active mode; the controller picks the
// initial one via InitialState after the startup probe.
func NewTimeRangeResolver(clock func() time.Time) *TimeRangeResolver {
	if clock == nil {
		clock = time.Now
	}
	return &TimeRangeResolver{clock: clock}
}

// Current returns the active mode state.
func (r *TimeRangeResolver) Current() models.ModeState { return r.state }

// Layout returns the page layout implied by the active mode.
func (r *TimeRangeResolver) Layout() models.Layout { return models.LayoutFor(r.state.Mode) }

// ProbeQuery is the startup query deciding the initial mode: today's
// aggregate from midnight to now.
func (r *TimeRangeResolver) ProbeQuery() backend.Query {
	now := r.clock()
	return backend.Query{
		Type:     models.ModeToday,
		FromTime: "00:00",
		ToTime:   now.Format(layoutClock),
	}
}

// InitialState chooses the first mode from the probe result: any recorded
// energy (or load) today selects the historical Today view, an empty day
// falls back to the live view.
func (r *TimeRangeResolver) InitialState(probe models.AggregateResult, tick time.Duration) models.ModeState {
	if probe.TotalEnergyWh > 0 || probe.AvgLoadPercent > 0 {
		now := r.clock()
		return models.ModeState{
			Mode:     models.ModeToday,
			FromTime: "00:00",
			ToTime:   now.Format(layoutClock),
		}
	}
	return models.ModeState{Mode: models.ModeRealTime, TickInterval: config.ClampTickInterval(tick)}
}

// Transition validates and normalizes the requested state and installs it as
// current. It returns the normalized state; resource teardown for the
// previous state is the caller's responsibility.
func (r *TimeRangeResolver) Transition(next models.ModeState) (models.ModeState, error) {
	if !next.Mode.Valid() {
		return models.ModeState{}, fmt.Errorf("%w: %q", errUnknownMode, next.Mode)
	}
	now := r.clock()

	switch next.Mode {
	case models.ModeRealTime:
		next.TickInterval = config.ClampTickInterval(next.TickInterval)
		next.FromTime, next.ToTime = "", ""
		next.Day, next.RangeFrom, next.RangeTo = time.Time{}, time.Time{}, time.Time{}

	case models.ModeToday:
		if next.FromTime == "" {
			next.FromTime = "00:00"
		}
		if next.ToTime == "" {
			next.ToTime = now.Format(layoutClock)
		}
		if _, err := time.Parse(layoutClock, next.FromTime); err != nil {
			return models.ModeState{}, fmt.Errorf("bad from_time %q: %w", next.FromTime, err)
		}
		if _, err := time.Parse(layoutClock, next.ToTime); err != nil {
			return models.ModeState{}, fmt.Errorf("bad to_time %q: %w", next.ToTime, err)
		}

	case models.ModeDay:
		if next.Day.IsZero() {
			return models.ModeState{}, errDayRequired
		}

	case models.ModeRange:
		if next.RangeFrom.IsZero() || next.RangeTo.IsZero() {
			return models.ModeState{}, errBadDateRange
		}
		if next.RangeFrom.After(next.RangeTo) {
			return models.ModeState{}, errBadDateRange
		}
	}

	r.state = next
	return next, nil
}

// PreviousQuery maps a historical state to the query for the window of equal
// length immediately preceding it, the comparison base for the stat-card
// trends. Modes without a comparable prior window return false.
func (r *TimeRangeResolver) PreviousQuery(state models.ModeState) (backend.Query, bool) {
	switch state.Mode {
	case models.ModeToday:
		yesterday := r.clock().AddDate(0, 0, -1)
		return backend.Query{Type: models.ModeDay, FromTime: yesterday.Format(layoutDate)}, true
	case models.ModeDay:
		return backend.Query{Type: models.ModeDay, FromTime: state.Day.AddDate(0, 0, -1).Format(layoutDate)}, true
	case models.ModeRange:
		days := int(state.RangeTo.Sub(state.RangeFrom).Hours()/24) + 1
		return backend.Query{
			Type:     models.ModeRange,
			FromTime: state.RangeFrom.AddDate(0, 0, -days).Format(layoutDate),
			ToTime:   state.RangeFrom.AddDate(0, 0, -1).Format(layoutDate),
		}, true
	default:
		return backend.Query{}, false
	}
}

// QueryFor maps a mode state to its backend query parameters.
func (r *TimeRangeResolver) QueryFor(state models.ModeState) backend.Query {
	switch state.Mode {
	case models.ModeToday:
		return backend.Query{Type: models.ModeToday, FromTime: state.FromTime, ToTime: state.ToTime}
	case models.ModeDay:
		return backend.Query{Type: models.ModeDay, FromTime: state.Day.Format(layoutDate)}
	case models.ModeRange:
		return backend.Query{
			Type:     models.ModeRange,
			FromTime: state.RangeFrom.Format(layoutDate),
			ToTime:   state.RangeTo.Format(layoutDate),
		}
	default:
		return backend.Query{Type: models.ModeRealTime}
	}
}
