package service

import (
	"math"
	"time"

	"energy_dashboard/internal/models"
)

// Bucket display precision: 3 decimals per bucket, 2 for the total. Rounding
// happens once, after all arithmetic, so per-step rounding error cannot
// compound.
const (
	bucketDecimals = 3
	totalDecimals  = 2
)

// Diurnal hour bounds for grouping raw series directly. Mirrors the backend's
// own distribution: morning 06-11, afternoon 12-17, evening 18-22, night
// 23 plus 00-05.
func periodForHour(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return models.PeriodMorning
	case hour >= 12 && hour < 18:
		return models.PeriodAfternoon
	case hour >= 18 && hour < 23:
		return models.PeriodEvening
	default:
		return models.PeriodNight
	}
}

// BucketsFromDistribution turns a backend distribution into the four
// display buckets in fixed diurnal order plus the rounded total. A nil
// distribution yields four zero buckets and a 0.00 total.
func BucketsFromDistribution(d *models.CostDistribution) ([]models.Bucket, float64) {
	raw := map[string]float64{
		models.PeriodMorning:   0,
		models.PeriodAfternoon: 0,
		models.PeriodEvening:   0,
		models.PeriodNight:     0,
	}
	if d != nil {
		raw[models.PeriodMorning] = models.ClampNonNegative(d.Morning)
		raw[models.PeriodAfternoon] = models.ClampNonNegative(d.Afternoon)
		raw[models.PeriodEvening] = models.ClampNonNegative(d.Evening)
		raw[models.PeriodNight] = models.ClampNonNegative(d.Night)
	}
	return assembleBuckets(raw)
}

// BucketsFromSeries groups a raw cost series by local hour of day into the
// four buckets, for callers that have a series but no backend distribution.
func BucketsFromSeries(points []models.CostPoint, loc *time.Location) ([]models.Bucket, float64) {
	if loc == nil {
		loc = time.Local
	}
	raw := map[string]float64{
		models.PeriodMorning:   0,
		models.PeriodAfternoon: 0,
		models.PeriodEvening:   0,
		models.PeriodNight:     0,
	}
	for _, p := range points {
		hour := time.UnixMilli(p.TimestampMs).In(loc).Hour()
		raw[periodForHour(hour)] += models.ClampNonNegative(p.Cost)
	}
	return assembleBuckets(raw)
}

func assembleBuckets(raw map[string]float64) ([]models.Bucket, float64) {
	buckets := make([]models.Bucket, 0, len(models.PeriodOrder))
	sum := 0.0
	for _, period := range models.PeriodOrder {
		sum += raw[period]
		buckets = append(buckets, models.Bucket{
			Period: period,
			Cost:   roundHalfUp(raw[period], bucketDecimals),
		})
	}
	return buckets, roundHalfUp(sum, totalDecimals)
}

// roundHalfUp rounds to the given number of decimals, ties away from zero.
func roundHalfUp(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
