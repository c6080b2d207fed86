package engine

import (
	"math"
	"sort"

	"insightx-workers/internal/models"
)

const (
	DefaultComparisonZThreshold = 2.0
	DefaultAnomalyZThreshold    = 1.5

	minAnomalyGroups = 4
)

// DetectAnomalies flags groups whose z-score against the population mean and
// standard deviation reaches threshold in absolute value. Fewer than four
// groups, or no variance, yields no anomalies. Results are ordered by
// descending |z|.
func DetectAnomalies(rows []models.GroupRow, threshold float64) []models.Anomaly {
	out := []models.Anomaly{}
	if len(rows) < minAnomalyGroups {
		return out
	}

	mean, std := meanStd(rows, false)
	if std <= 1e-12*math.Max(1, math.Abs(mean)) {
		return out
	}

	for _, r := range rows {
		z := (r.Value - mean) / std
		if math.Abs(z) < threshold {
			continue
		}
		dir := models.DirectionLow
		if z > 0 {
			dir = models.DirectionHigh
		}
		out = append(out, models.Anomaly{
			Group:     r.Group,
			Value:     r.Value,
			ZScore:    round2(z),
			Direction: dir,
			Formatted: r.Formatted,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].ZScore) > math.Abs(out[j].ZScore)
	})
	return out
}

// meanStd returns the mean and standard deviation of the group values;
// sample selects the n-1 denominator.
func meanStd(rows []models.GroupRow, sample bool) (float64, float64) {
	n := float64(len(rows))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, r := range rows {
		sum += r.Value
	}
	mean := sum / n

	denom := n
	if sample {
		denom = n - 1
	}
	if denom <= 0 {
		return mean, 0
	}
	var sq float64
	for _, r := range rows {
		d := r.Value - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / denom)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
