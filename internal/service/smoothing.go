package service

import (
	"sync"
	"time"

	"energy_dashboard/internal/models"
)

// Smoothing filter constants. The 1.2^i weight ladder and the 1 W power
// floor are carried over from the original display pipeline as literal
// tuning values.
const (
	DefaultSmoothingCapacity = 15
	smoothingWeightBase      = 1.2
	minPowerW                = 1.0
)

// SmoothingBuffer is a bounded ring of live cost samples with a weighted
// moving average, newest sample weighted heaviest. It consumes one power
// reading per realtime tick and is cleared on mode exit.
type SmoothingBuffer struct {
	mu    sync.Mutex
	data  []models.CostPoint
	head  int
	count int
	costs *CostModel
}

// NewSmoothingBuffer builds a buffer of the given capacity.
func NewSmoothingBuffer(capacity int, costs *CostModel) *SmoothingBuffer {
	if capacity <= 0 {
		capacity = DefaultSmoothingCapacity
	}
	return &SmoothingBuffer{
		data:  make([]models.CostPoint, capacity),
		costs: costs,
	}
}

// Consume prices one power reading and pushes it into the ring, evicting the
// oldest sample when full. Non-positive readings are floored to 1 W so the
// live chart can never flatline at zero. It returns the new smoothed value.
func (b *SmoothingBuffer) Consume(ts time.Time, powerW float64) models.CostPoint {
	if powerW < minPowerW {
		powerW = minPowerW
	}
	point := models.CostPoint{
		TimestampMs: ts.UnixMilli(),
		Cost:        b.costs.InstantCost(powerW),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[b.head] = point
	b.head = (b.head + 1) % len(b.data)
	if b.count < len(b.data) {
		b.count++
	}
	return models.CostPoint{TimestampMs: point.TimestampMs, Cost: b.smoothedLocked()}
}

// Latest returns the most recent smoothed value, false when empty.
func (b *SmoothingBuffer) Latest() (models.CostPoint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return models.CostPoint{}, false
	}
	newest := b.data[(b.head-1+len(b.data))%len(b.data)]
	return models.CostPoint{TimestampMs: newest.TimestampMs, Cost: b.smoothedLocked()}, true
}

// Len returns the number of retained samples.
func (b *SmoothingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Clear drops all samples. Called when leaving realtime mode so a later
// re-entry starts from a fresh window.
func (b *SmoothingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.data {
		b.data[i] = models.CostPoint{}
	}
	b.head = 0
	b.count = 0
}

// smoothedLocked computes the weighted moving average over the retained
// samples: weight 1.2^i with i counted from the oldest, so the newest sample
// always carries the largest weight. With a partial buffer the weights are
// re-derived over positions 0..count-1.
func (b *SmoothingBuffer) smoothedLocked() float64 {
	if b.count == 0 {
		return 0
	}
	oldest := (b.head - b.count + len(b.data)) % len(b.data)
	weight := 1.0
	sum, weights := 0.0, 0.0
	for i := 0; i < b.count; i++ {
		v := b.data[(oldest+i)%len(b.data)]
		sum += v.Cost * weight
		weights += weight
		weight *= smoothingWeightBase
	}
	return sum / weights
}
