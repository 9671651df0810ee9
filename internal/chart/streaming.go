package chart

import (
	"sync"
	"time"

	"energy_dashboard/internal/models"
)

// Vertical axis headroom above the current maximum.
const axisHeadroom = 1.2

// StreamingConfig tunes the live rendering strategy.
type StreamingConfig struct {
	Currency     string
	Window       time.Duration // visible time window of points
	TickInterval time.Duration // refresh cadence, equal to the sampling tick
	RefreshDelay time.Duration // fixed startup delay absorbing network jitter
	AxisFloor    float64       // minimum y-axis ceiling, currency units
	PowerMediumW float64       // border tier breakpoint low->medium
	PowerHighW   float64       // border tier breakpoint medium->high
}

// StreamingAdapter renders the realtime mode: an append-only line over a
// fixed time window. A periodic refresh pulls the latest smoothed value and
// appends it; old points fall out of the window.
type StreamingAdapter struct {
	sink   Sink
	cfg    StreamingConfig
	latest func() (models.CostPoint, bool) // newest smoothed value
	power  func() float64                  // last raw power reading, W
	clock  func() time.Time

	mu       sync.Mutex
	live     bool
	disposed bool
	points   []models.CostPoint
	stop     chan struct{}
}

// NewStreamingAdapter builds the live rendering strategy. latest feeds the
// periodic refresh; power drives the border emphasis tier.
func NewStreamingAdapter(sink Sink, cfg StreamingConfig, latest func() (models.CostPoint, bool), power func() float64, clock func() time.Time) *StreamingAdapter {
	if clock == nil {
		clock = time.Now
	}
	return &StreamingAdapter{sink: sink, cfg: cfg, latest: latest, power: power, clock: clock}
}

// Render seeds the window and starts the periodic refresh. Calling it on a
// live or disposed adapter is a caller error.
func (a *StreamingAdapter) Render(initial Dataset) error {
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
	a.points = append([]models.CostPoint(nil), initial.Series...)
	a.stop = make(chan struct{})
	stop := a.stop
	a.mu.Unlock()

	a.publish()
	go a.refreshLoop(stop)
	return nil
}

// Update appends the given points. The streaming strategy never replaces its
// window; history only leaves by aging out.
func (a *StreamingAdapter) Update(next Dataset) error {
	a.mu.Lock()
	if !a.live {
		a.mu.Unlock()
		return nil
	}
	a.points = append(a.points, next.Series...)
	a.evictLocked()
	a.mu.Unlock()

	a.publish()
	return nil
}

// Dispose stops the refresh timer and drops the window. Idempotent and
// terminal.
func (a *StreamingAdapter) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
	a.live = false
	a.disposed = true
	a.points = nil
}

// refreshLoop waits the configured jitter delay, then appends the latest
// smoothed value once per tick until disposed.
func (a *StreamingAdapter) refreshLoop(stop chan struct{}) {
	delay := time.NewTimer(a.cfg.RefreshDelay)
	defer delay.Stop()
	select {
	case <-stop:
		return
	case <-delay.C:
	}

	tick := time.NewTicker(a.cfg.TickInterval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			point, ok := a.latest()
			if !ok {
				continue
			}
			a.mu.Lock()
			if !a.live {
				a.mu.Unlock()
				return
			}
			a.points = append(a.points, point)
			a.evictLocked()
			a.mu.Unlock()
			a.publish()
		}
	}
}

// evictLocked drops points older than the visible window.
func (a *StreamingAdapter) evictLocked() {
	cutoff := a.clock().Add(-a.cfg.Window).UnixMilli()
	i := 0
	for ; i < len(a.points); i++ {
		if a.points[i].TimestampMs >= cutoff {
			break
		}
	}
	a.points = a.points[i:]
}

func (a *StreamingAdapter) publish() {
	a.mu.Lock()
	if !a.live {
		a.mu.Unlock()
		return
	}
	series := append([]models.CostPoint(nil), a.points...)
	a.mu.Unlock()

	a.sink.Publish(Frame{
		Kind:      KindStream,
		Layout:    models.LayoutSingleColumn,
		Currency:  a.cfg.Currency,
		Series:    series,
		AxisMax:   a.axisMax(series),
		PowerTier: a.tier(),
		At:        a.clock(),
	})
}

// axisMax keeps headroom above the current maximum but never collapses the
// chart below the configured floor.
func (a *StreamingAdapter) axisMax(series []models.CostPoint) float64 {
	max := 0.0
	for _, p := range series {
		if p.Cost > max {
			max = p.Cost
		}
	}
	scaled := max * axisHeadroom
	if scaled < a.cfg.AxisFloor {
		return a.cfg.AxisFloor
	}
	return scaled
}

// tier maps the instantaneous power onto the three-step emphasis scale.
func (a *StreamingAdapter) tier() string {
	w := a.power()
	switch {
	case w >= a.cfg.PowerHighW:
		return TierHigh
	case w >= a.cfg.PowerMediumW:
		return TierMedium
	default:
		return TierLow
	}
}
