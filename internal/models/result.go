// internal/models/result.go
package models

// GroupRow is one bucket of a grouped metric computation.
type GroupRow struct {
	Group     string  `json:"group"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
	Count     int     `json:"count"`
}

// AnomalyDirection tells whether an outlier sits above or below the mean.
type AnomalyDirection string

const (
	DirectionHigh AnomalyDirection = "high"
	DirectionLow  AnomalyDirection = "low"
)

// Anomaly is a group whose z-score crossed the detection threshold.
type Anomaly struct {
	Group     string           `json:"group"`
	Value     float64          `json:"value"`
	ZScore    float64          `json:"z_score"`
	Direction AnomalyDirection `json:"direction"`
	Formatted string           `json:"formatted"`
}

// AnalyticsResult is the outcome of executing one StructuredQuery.
// A successful result carries either Value or Table, never both.
type AnalyticsResult struct {
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`
	ErrorCode   string     `json:"error_code,omitempty"`
	Intent      Intent     `json:"intent"`
	Metric      Metric     `json:"metric"`
	MetricLabel string     `json:"metric_label"`
	GroupBy     *Dimension `json:"group_by"`
	DimLabel    string     `json:"dim_label"`
	Filters     Filters    `json:"filters"`
	Compare     []string   `json:"compare"`

	Value          *float64   `json:"value,omitempty"`
	ValueFormatted string     `json:"value_formatted,omitempty"`
	Table          []GroupRow `json:"table,omitempty"`
	Breakdown      []GroupRow `json:"breakdown,omitempty"`

	TotalRows    int `json:"total_rows"`
	FilteredRows int `json:"filtered_rows"`

	Narrative string    `json:"narrative"`
	Insights  []string  `json:"insights"`
	Anomalies []Anomaly `json:"anomalies"`

	QueryJSON string `json:"query_json"`
}

// Scalar reports the single value of a scalar result.
func (r AnalyticsResult) Scalar() (float64, bool) {
	if r.Value == nil {
		return 0, false
	}
	return *r.Value, true
}

// HasCompare reports whether the result was restricted to an explicit segment set.
func (r AnalyticsResult) HasCompare() bool {
	return len(r.Compare) > 0
}
