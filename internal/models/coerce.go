package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// AsFloat coerces any JSON value to a float64, defaulting to 0 for missing
// or non-numeric input. The backend emits decimals both as numbers and as
// strings depending on the field.
func AsFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// ParseTimestamp accepts RFC3339 strings, the backend's space-separated
// layout, bare dates, or Unix millisecond numbers.
func ParseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
		if ts, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return ts.UTC()
		}
		if ts, err := time.Parse("2006-01-02", t); err == nil {
			return ts.UTC()
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	}
	return time.Time{}
}

// AggregateFromWire coerces the loosely-typed aggregate payload. Missing or
// non-numeric fields become 0 rather than an error.
func AggregateFromWire(raw map[string]any) AggregateResult {
	a := AggregateResult{
		TotalEnergyWh:  AsFloat(raw["totalEnergy"]),
		TotalCost:      AsFloat(raw["totalCost"]),
		AvgLoadPercent: AsFloat(raw["avgLoad"]),
		CO2Kg:          AsFloat(raw["co2"]),
		NominalPowerW:  AsFloat(raw["ups_realpower_nominal"]),
	}
	if t, ok := raw["trends"].(map[string]any); ok {
		a.Trends = &Trends{
			Energy: AsFloat(t["energy"]),
			Cost:   AsFloat(t["cost"]),
			Load:   AsFloat(t["load"]),
			CO2:    AsFloat(t["co2"]),
		}
	}
	if d, ok := raw["cost_distribution"].(map[string]any); ok {
		a.Distribution = &CostDistribution{
			Morning:   AsFloat(d["morning"]),
			Afternoon: AsFloat(d["afternoon"]),
			Evening:   AsFloat(d["evening"]),
			Night:     AsFloat(d["night"]),
		}
	}
	return a.Sanitize()
}

// SeriesFromWire converts the [[timestamp, cost], ...] wire series, skipping
// malformed pairs and clamping costs to be non-negative.
func SeriesFromWire(series [][]any) []CostPoint {
	points := make([]CostPoint, 0, len(series))
	for _, pair := range series {
		if len(pair) < 2 {
			continue
		}
		points = append(points, CostPoint{
			TimestampMs: ParseTimestamp(pair[0]).UnixMilli(),
			Cost:        ClampNonNegative(AsFloat(pair[1])),
		})
	}
	return points
}
