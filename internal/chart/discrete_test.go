package chart

import (
	"errors"
	"sync"
	"testing"
	"time"

	"energy_dashboard/internal/models"
)

// recordingSink captures every published frame.
type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
}

func (s *recordingSink) Publish(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *recordingSink) all() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDiscreteAdapter_RenderOncePolicy(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	a := NewDiscreteAdapter(sink, "EUR", nil)

	if err := a.Render(Dataset{}); err != nil {
		t.Fatalf("first Render() error = %v", err)
	}
	if err := a.Render(Dataset{}); !errors.Is(err, ErrAlreadyLive) {
		t.Fatalf("second Render() error = %v, want ErrAlreadyLive", err)
	}

	// Dispose is terminal: a late Render must not resurrect the adapter or
	// publish anything.
	a.Dispose()
	published := len(sink.all())
	if err := a.Render(Dataset{Series: []models.CostPoint{{TimestampMs: 2, Cost: 9.9}}}); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Render() after Dispose error = %v, want ErrDisposed", err)
	}
	if got := len(sink.all()); got != published {
		t.Fatalf("disposed adapter published a frame: %d -> %d", published, got)
	}
}

func TestDiscreteAdapter_UpdateReplacesWholesale(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	a := NewDiscreteAdapter(sink, "EUR", fixedClock(now))

	first := []models.CostPoint{{TimestampMs: 1000, Cost: 0.1}, {TimestampMs: 2000, Cost: 0.2}}
	if err := a.Render(Dataset{Series: first, TotalCost: 0.3}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	second := []models.CostPoint{{TimestampMs: 9000, Cost: 0.9}}
	if err := a.Update(Dataset{Series: second, TotalCost: 0.9}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	frames := sink.all()
	if len(frames) != 2 {
		t.Fatalf("published %d frames, want 2", len(frames))
	}
	last := frames[1]
	if last.Kind != KindDiscrete || last.Layout != models.LayoutTwoColumn {
		t.Errorf("frame kind/layout = %q/%q", last.Kind, last.Layout)
	}
	if len(last.Series) != 1 || last.Series[0].TimestampMs != 9000 {
		t.Errorf("update did not replace the series: %+v", last.Series)
	}

	// the old points are gone from selection too
	if _, ok := a.Selected(1000); ok {
		t.Error("Selected() resolved a point from the replaced dataset")
	}
	if _, ok := a.Selected(9000); !ok {
		t.Error("Selected() missed a point from the current dataset")
	}
}

func TestDiscreteAdapter_UpdateAfterDisposeIsDropped(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	a := NewDiscreteAdapter(sink, "EUR", nil)
	if err := a.Render(Dataset{}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	a.Dispose()
	a.Dispose() // idempotent

	published := len(sink.all())
	if err := a.Update(Dataset{Series: []models.CostPoint{{TimestampMs: 1, Cost: 1}}}); err != nil {
		t.Fatalf("Update() after Dispose error = %v", err)
	}
	if got := len(sink.all()); got != published {
		t.Fatalf("late update published a frame: %d -> %d", published, got)
	}
}
