package models

// Diurnal periods, in fixed display order.
const (
	PeriodMorning   = "morning"   // 06:00-11:59
	PeriodAfternoon = "afternoon" // 12:00-17:59
	PeriodEvening   = "evening"   // 18:00-22:59
	PeriodNight     = "night"     // 23:00-05:59
)

// PeriodOrder is the canonical ordering of the four diurnal buckets.
// Rendering must never reorder it, even for zero-filled data.
var PeriodOrder = [4]string{PeriodMorning, PeriodAfternoon, PeriodEvening, PeriodNight}

// Bucket is the cost accumulated in one diurnal period.
type Bucket struct {
	Period string  `json:"period"`
	Cost   float64 `json:"cost"` // >= 0
}

// CostDistribution is the backend's raw four-way split, keyed by period.
type CostDistribution struct {
	Morning   float64 `json:"morning"`
	Afternoon float64 `json:"afternoon"`
	Evening   float64 `json:"evening"`
	Night     float64 `json:"night"`
}

// Trends carries percentage deltas versus the previous period.
type Trends struct {
	Energy float64 `json:"energy"`
	Cost   float64 `json:"cost"`
	Load   float64 `json:"load"`
	CO2    float64 `json:"co2"`
}

// AggregateResult is one query's worth of display-ready figures. It is
// immutable and superseded wholesale by the next query result.
type AggregateResult struct {
	TotalEnergyWh  float64           `json:"totalEnergy"` // >= 0
	TotalCost      float64           `json:"totalCost"`   // >= 0
	AvgLoadPercent float64           `json:"avgLoad"`     // [0,100]
	CO2Kg          float64           `json:"co2"`         // >= 0
	NominalPowerW  float64           `json:"ups_realpower_nominal,omitempty"`
	SavedCost      float64           `json:"saved,omitempty"`
	Trends         *Trends           `json:"trends,omitempty"`
	Distribution   *CostDistribution `json:"cost_distribution,omitempty"`
}

// Sanitize applies the numeric coercion rules: non-negative totals and a
// bounded average load.
func (a AggregateResult) Sanitize() AggregateResult {
	a.TotalEnergyWh = ClampNonNegative(a.TotalEnergyWh)
	a.TotalCost = ClampNonNegative(a.TotalCost)
	a.CO2Kg = ClampNonNegative(a.CO2Kg)
	a.AvgLoadPercent = ClampLoad(a.AvgLoadPercent)
	a.NominalPowerW = ClampNonNegative(a.NominalPowerW)
	return a
}

// CostPoint is one (timestamp, cost) pair of a trend or detail series.
// Timestamps are Unix milliseconds, matching the wire format.
type CostPoint struct {
	TimestampMs int64   `json:"x"`
	Cost        float64 `json:"y"`
}
