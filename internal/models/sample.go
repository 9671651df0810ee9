package models

import "time"

// Sample is one UPS telemetry reading, delivered by the push channel or the
// cache endpoint. Immutable once received.
type Sample struct {
	Timestamp     time.Time `json:"timestamp"`
	RealPowerW    float64   `json:"ups_realpower"` // W, >= 0
	LoadPercent   float64   `json:"ups_load"`      // [0,100]
	BatteryCharge float64   `json:"battery_charge,omitempty"`
	NominalPowerW float64   `json:"ups_realpower_nominal,omitempty"` // rated power, W
}

// ClampLoad bounds a load percentage to [0,100].
func ClampLoad(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampNonNegative bounds energy/cost/co2 readings to >= 0.
func ClampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Normalize applies the telemetry coercion rules in place: missing or
// negative power becomes 0 and load is bounded to its percentage range.
func (s *Sample) Normalize() {
	s.RealPowerW = ClampNonNegative(s.RealPowerW)
	s.LoadPercent = ClampLoad(s.LoadPercent)
	s.BatteryCharge = ClampLoad(s.BatteryCharge)
	s.NominalPowerW = ClampNonNegative(s.NominalPowerW)
}
