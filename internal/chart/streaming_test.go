package chart

import (
	"errors"
	"testing"
	"time"

	"energy_dashboard/internal/models"
)

func testStreamingConfig() StreamingConfig {
	return StreamingConfig{
		Currency:     "EUR",
		Window:       time.Minute,
		TickInterval: 10 * time.Millisecond,
		RefreshDelay: time.Millisecond,
		AxisFloor:    0.005,
		PowerMediumW: 200,
		PowerHighW:   500,
	}
}

func noLatest() (models.CostPoint, bool) { return models.CostPoint{}, false }

func TestStreamingAdapter_AxisMax(t *testing.T) {
	t.Parallel()

	a := NewStreamingAdapter(&recordingSink{}, testStreamingConfig(), noLatest, func() float64 { return 0 }, nil)

	tests := []struct {
		name   string
		series []models.CostPoint
		want   float64
	}{
		{name: "empty series pins the floor", series: nil, want: 0.005},
		{name: "tiny values pin the floor", series: []models.CostPoint{{Cost: 0.001}}, want: 0.005},
		{name: "headroom above the maximum", series: []models.CostPoint{{Cost: 0.1}, {Cost: 0.5}}, want: 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.axisMax(tt.series)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("axisMax() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStreamingAdapter_PowerTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		power float64
		want  string
	}{
		{power: 0, want: TierLow},
		{power: 199.9, want: TierLow},
		{power: 200, want: TierMedium},
		{power: 499.9, want: TierMedium},
		{power: 500, want: TierHigh},
		{power: 2000, want: TierHigh},
	}
	for _, tt := range tests {
		p := tt.power
		a := NewStreamingAdapter(&recordingSink{}, testStreamingConfig(), noLatest, func() float64 { return p }, nil)
		if got := a.tier(); got != tt.want {
			t.Errorf("tier() at %v W = %q, want %q", tt.power, got, tt.want)
		}
	}
}

func TestStreamingAdapter_UpdateAppendsAndEvicts(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	cfg := testStreamingConfig()
	a := NewStreamingAdapter(sink, cfg, noLatest, func() float64 { return 0 }, fixedClock(now))

	seed := []models.CostPoint{
		{TimestampMs: now.Add(-90 * time.Second).UnixMilli(), Cost: 0.1}, // outside the window
		{TimestampMs: now.Add(-30 * time.Second).UnixMilli(), Cost: 0.2},
	}
	if err := a.Render(Dataset{Series: seed}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	defer a.Dispose()

	fresh := models.CostPoint{TimestampMs: now.UnixMilli(), Cost: 0.3}
	if err := a.Update(Dataset{Series: []models.CostPoint{fresh}}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	frames := sink.all()
	last := frames[len(frames)-1]
	if last.Kind != KindStream || last.Layout != models.LayoutSingleColumn {
		t.Errorf("frame kind/layout = %q/%q", last.Kind, last.Layout)
	}
	if len(last.Series) != 2 {
		t.Fatalf("window holds %d points, want 2 (stale point evicted, fresh appended)", len(last.Series))
	}
	if last.Series[0].Cost != 0.2 || last.Series[1].Cost != 0.3 {
		t.Fatalf("window contents = %+v", last.Series)
	}
}

func TestStreamingAdapter_RefreshLoopAppendsLatest(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	point := models.CostPoint{TimestampMs: now.UnixMilli(), Cost: 0.42}
	latest := func() (models.CostPoint, bool) { return point, true }

	a := NewStreamingAdapter(sink, testStreamingConfig(), latest, func() float64 { return 300 }, fixedClock(now))
	if err := a.Render(Dataset{}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	defer a.Dispose()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frames := sink.all()
		if len(frames) >= 2 { // initial frame plus at least one refresh
			last := frames[len(frames)-1]
			if len(last.Series) == 0 || last.Series[len(last.Series)-1].Cost != 0.42 {
				t.Fatalf("refresh frame does not end with the latest value: %+v", last.Series)
			}
			if last.PowerTier != TierMedium {
				t.Fatalf("power tier = %q, want medium at 300 W", last.PowerTier)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("refresh loop never published a frame")
}

func TestStreamingAdapter_DisposeStopsPublishing(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	a := NewStreamingAdapter(sink, testStreamingConfig(), noLatest, func() float64 { return 0 }, nil)
	if err := a.Render(Dataset{}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	a.Dispose()
	a.Dispose() // idempotent

	count := len(sink.all())
	time.Sleep(50 * time.Millisecond)
	if got := len(sink.all()); got != count {
		t.Fatalf("frames kept arriving after Dispose: %d -> %d", count, got)
	}

	// disposal is terminal; the mode transition builds a fresh adapter
	if err := a.Render(Dataset{}); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Render() after Dispose error = %v, want ErrDisposed", err)
	}
}

func TestHub_LastAndFanOut(t *testing.T) {
	t.Parallel()

	h := NewHub()
	if _, ok := h.Last(); ok {
		t.Fatal("empty hub reported a last frame")
	}

	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(Frame{Kind: KindDiscrete, TotalCost: 1.5})

	select {
	case f := <-ch:
		if f.TotalCost != 1.5 {
			t.Fatalf("subscriber got %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the frame")
	}

	last, ok := h.Last()
	if !ok || last.TotalCost != 1.5 {
		t.Fatalf("Last() = %+v, %v", last, ok)
	}
}

func TestHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	t.Parallel()

	h := NewHub()
	_, cancel := h.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Publish(Frame{TotalCost: float64(i)})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
