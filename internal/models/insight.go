// internal/models/insight.go
package models

// Chart types selected for an InsightResponse.
const (
	ChartComparison = "comparison"
	ChartLine       = "line"
	ChartAnomaly    = "anomaly"
	ChartGauge      = "gauge"
	ChartDonut      = "donut"
	ChartBar        = "bar"
)

// InsightResponse is the display-ready rendering of an AnalyticsResult.
type InsightResponse struct {
	QueryID         string           `json:"queryId"`
	Success         bool             `json:"success"`
	Error           string           `json:"error,omitempty"`
	Headline        string           `json:"headline"`
	Narrative       string           `json:"narrative"`
	Bullets         []string         `json:"bullets"`
	RiskFlags       []string         `json:"riskFlags"`
	Recommendations []string         `json:"recommendations"`
	FollowUps       []string         `json:"followUps"`
	Confidence      float64          `json:"confidence"`
	ConfidenceLabel string           `json:"confidenceLabel"`
	ChartType       string           `json:"chartType"`
	HasAnomalies    bool             `json:"hasAnomalies"`
	AnomalyCount    int              `json:"anomalyCount"`
	Result          *AnalyticsResult `json:"result,omitempty"`
}
