// Package chart holds the rendering strategies for the energy dashboard.
// The analytics controller talks to the Adapter interface only; the discrete
// and streaming implementations publish display-ready frames to a Sink
// instead of drawing anything themselves.
package chart

import (
	"errors"
	"time"

	"energy_dashboard/internal/models"
)

// ErrAlreadyLive is returned when Render is called twice without an
// intervening Dispose. That is a caller bug, not a recoverable condition.
var ErrAlreadyLive = errors.New("chart adapter already rendered; dispose it first")

// ErrDisposed is returned when Render is called on a torn-down adapter.
// Disposal is terminal; the mode transition builds a fresh adapter instead of
// reviving the old one, so a late Render cannot resurrect stale output.
var ErrDisposed = errors.New("chart adapter disposed")

// Dataset is the input to a render or update call.
type Dataset struct {
	Series    []models.CostPoint
	Buckets   []models.Bucket
	TotalCost float64
}

// Adapter is the rendering strategy. Dispose must be idempotent, terminal and
// release any periodic timers the adapter started; a disposed adapter refuses
// further renders.
type Adapter interface {
	Render(initial Dataset) error
	Update(next Dataset) error
	Dispose()
}

// Frame kinds published to the sink.
const (
	KindDiscrete = "discrete"
	KindStream   = "stream"
)

// Power emphasis tiers for the streaming chart border.
const (
	TierLow    = "low"
	TierMedium = "medium"
	TierHigh   = "high"
)

// Frame is one display-ready render, consumed by dashboard clients.
type Frame struct {
	Kind      string             `json:"kind"`
	Layout    models.Layout      `json:"layout"`
	Currency  string             `json:"currency"`
	Series    []models.CostPoint `json:"series"`
	Buckets   []models.Bucket    `json:"buckets,omitempty"`
	TotalCost float64            `json:"total_cost,omitempty"`
	AxisMax   float64            `json:"axis_max,omitempty"`
	PowerTier string             `json:"power_tier,omitempty"`
	At        time.Time          `json:"at"`
}

// Sink receives published frames. Implementations must not block.
type Sink interface {
	Publish(Frame)
}
