package models

import "time"

// Granularity of a drill-down detail series.
type Granularity string

const (
	GranularityDay    Granularity = "day"
	GranularityHour   Granularity = "hour"
	GranularityMinute Granularity = "minute"
)

// DrillDownContext describes the single active drill-down level. It is
// discarded when the detail view closes; reopening fetches from scratch.
type DrillDownContext struct {
	Origin            time.Time   `json:"origin"`
	Granularity       Granularity `json:"granularity"`
	ParentGranularity Granularity `json:"parent_granularity"`
	From              time.Time   `json:"from"`
	To                time.Time   `json:"to"`
}
