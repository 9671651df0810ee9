package chart

import (
	"sync"
	"time"

	"energy_dashboard/internal/models"
)

// DiscreteAdapter renders historical modes: a bar series for the cost trend
// and the four-bucket donut. Every update replaces the whole dataset; there
// is no incremental merge.
type DiscreteAdapter struct {
	sink     Sink
	currency string
	clock    func() time.Time

	mu       sync.Mutex
	live     bool
	disposed bool
	series   []models.CostPoint
}

// NewDiscreteAdapter builds the historical rendering strategy.
func NewDiscreteAdapter(sink Sink, currency string, clock func() time.Time) *DiscreteAdapter {
	if clock == nil {
		clock = time.Now
	}
	return &DiscreteAdapter{sink: sink, currency: currency, clock: clock}
}

// Render publishes the initial dataset. Calling it on a live or disposed
// adapter is a caller error.
func (a *DiscreteAdapter) Render(initial Dataset) error {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return ErrDisposed
	}
	if a.live {
		a.mu.Unlock()
		return ErrAlreadyLive
	}
	a.live = true
	a.mu.Unlock()
	return a.Update(initial)
}

// Update replaces the rendered dataset wholesale.
func (a *DiscreteAdapter) Update(next Dataset) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.live {
		return nil // disposed; late updates are dropped
	}
	a.series = next.Series
	a.sink.Publish(Frame{
		Kind:      KindDiscrete,
		Layout:    models.LayoutTwoColumn,
		Currency:  a.currency,
		Series:    next.Series,
		Buckets:   next.Buckets,
		TotalCost: next.TotalCost,
		At:        a.clock(),
	})
	return nil
}

// Selected resolves a point-selection to the timestamp feeding the
// drill-down, validating that the point belongs to the rendered dataset.
func (a *DiscreteAdapter) Selected(timestampMs int64) (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.series {
		if p.TimestampMs == timestampMs {
			return time.UnixMilli(timestampMs), true
		}
	}
	return time.Time{}, false
}

// Dispose releases the adapter. Idempotent and terminal; the discrete
// strategy holds no timers, so this only marks it dead.
func (a *DiscreteAdapter) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live = false
	a.disposed = true
	a.series = nil
}
