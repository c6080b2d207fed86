package engine

import (
	"fmt"
	"sort"
	"strings"

	"insightx-workers/internal/models"
)

// groupedNarrative explains a comparison or ranking table: the extremes,
// followed by a metric-specific observation.
func groupedNarrative(rows []models.GroupRow, m models.Metric, dim models.Dimension) (string, []string) {
	if len(rows) == 0 {
		return "No data matched the filters.", []string{}
	}

	sorted := append([]models.GroupRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })
	top, bottom := sorted[0], sorted[len(sorted)-1]

	var bullets []string
	switch m {
	case models.MetricFraudRate:
		bullets = append(bullets,
			fmt.Sprintf("**%s** has the highest fraud rate at **%s**, a risk priority.", top.Group, top.Formatted),
			fmt.Sprintf("**%s** is the safest at **%s**.", bottom.Group, bottom.Formatted),
		)
		switch dim {
		case models.DimSenderState:
			bullets = append(bullets, "Regional fraud variance may reflect UPI adoption maturity and user awareness levels.")
		case models.DimHourOfDay:
			bullets = append(bullets, "Late-night hours (1-3 AM) show elevated fraud; consider transaction velocity limits.")
		}

	case models.MetricFailureRate:
		bullets = append(bullets,
			fmt.Sprintf("**%s** has the highest failure rate at **%s**, indicating reliability issues.", top.Group, top.Formatted),
			fmt.Sprintf("**%s** is the most reliable at **%s**.", bottom.Group, bottom.Formatted),
		)
		if dim == models.DimNetworkType {
			bullets = append(bullets, "3G shows structurally higher failure rates; users on slow networks face worse UX.")
		}

	case models.MetricAvgAmount:
		bullets = append(bullets,
			fmt.Sprintf("**%s** records the highest average transaction of **%s**.", top.Group, top.Formatted),
			fmt.Sprintf("**%s** has the lowest average at **%s**.", bottom.Group, bottom.Formatted),
			fmt.Sprintf("The spread between highest and lowest is **%s**.", FormatValue(top.Value-bottom.Value, m)),
		)

	case models.MetricCount:
		var total float64
		for _, r := range rows {
			total += r.Value
		}
		share := 0.0
		if total > 0 {
			share = top.Value / total * 100
		}
		bullets = append(bullets,
			fmt.Sprintf("**%s** dominates with **%s transactions** (%.1f%% share).", top.Group, top.Formatted, share),
			fmt.Sprintf("**%s** is the least used with **%s transactions**.", bottom.Group, bottom.Formatted),
		)

	case models.MetricTotalVolume:
		bullets = append(bullets,
			fmt.Sprintf("**%s** generates the highest total volume at **%s**.", top.Group, top.Formatted),
			fmt.Sprintf("**%s** contributes the least at **%s**.", bottom.Group, bottom.Formatted),
		)
	}

	narrative := fmt.Sprintf("%s analysis by **%s** across %d groups. ", m.Label(), dim.Label(), len(rows)) +
		strings.Join(bullets, " ")
	return narrative, bullets
}

func singleNarrative(res *models.AnalyticsResult, q models.StructuredQuery) (string, []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall **%s** is **%s** across %s transactions",
		res.MetricLabel, res.ValueFormatted, FormatInt(res.FilteredRows))
	if res.FilteredRows < res.TotalRows {
		fmt.Fprintf(&b, " (filtered from %s)", FormatInt(res.TotalRows))
	}
	b.WriteString(".")

	scope := DescribeFilters(q.Filters)
	if q.TimeWindow != nil {
		scope = append(scope, "Time window: "+q.TimeWindow.String())
	}
	if len(scope) > 0 {
		fmt.Fprintf(&b, " Active filters: %s.", strings.Join(scope, ", "))
	}

	bullets := []string{
		fmt.Sprintf("Dataset covers %s transactions.", FormatInt(res.TotalRows)),
		fmt.Sprintf("Filtered subset: %s transactions.", FormatInt(res.FilteredRows)),
		fmt.Sprintf("Computed %s: **%s**", res.MetricLabel, res.ValueFormatted),
	}
	return b.String(), bullets
}

func trendNarrative(rows []models.GroupRow, m models.Metric, dim models.Dimension) (string, []string) {
	peak, trough := rows[0], rows[0]
	for _, r := range rows[1:] {
		if r.Value > peak.Value {
			peak = r
		}
		if r.Value < trough.Value {
			trough = r
		}
	}
	_, std := meanStd(rows, true)

	narrative := fmt.Sprintf("**%s** trend over **%s**. Peak: **%s** at **%s**. Trough: **%s** at **%s**.",
		m.Label(), dim.Label(), peak.Group, peak.Formatted, trough.Group, trough.Formatted)
	bullets := []string{
		fmt.Sprintf("Peak period: **%s** (%s)", peak.Group, peak.Formatted),
		fmt.Sprintf("Quietest period: **%s** (%s)", trough.Group, trough.Formatted),
		fmt.Sprintf("Variance across periods: %s std dev", FormatValue(std, m)),
	}
	return narrative, bullets
}

func anomalyNarrative(anomalies []models.Anomaly, m models.Metric, dim models.Dimension) (string, []string) {
	if len(anomalies) == 0 {
		return "No significant anomalies detected; the distribution appears normal.", []string{}
	}
	first := anomalies[0]
	narrative := fmt.Sprintf("**%d anomalies** detected in %s by %s. Strongest: **%s** at **%s** (z-score: %+.2f).",
		len(anomalies), m.Label(), dim.Label(), first.Group, first.Formatted, first.ZScore)

	limit := len(anomalies)
	if limit > 5 {
		limit = 5
	}
	bullets := make([]string, 0, limit)
	for _, a := range anomalies[:limit] {
		bullets = append(bullets, fmt.Sprintf("**%s**: %s (z=%+.2f, %s outlier)", a.Group, a.Formatted, a.ZScore, a.Direction))
	}
	return narrative, bullets
}
