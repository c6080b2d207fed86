// internal/workers/analytics/parse-analytics-query/models.go
package parseanalyticsquery

import "insightx-workers/internal/models"

type Input struct {
	SessionID    string `json:"sessionId"`
	Query        string `json:"query"`
	ResetContext bool   `json:"resetContext"`
}

type Output struct {
	StructuredQuery models.StructuredQuery `json:"structuredQuery"`
	ContextHint     string                 `json:"contextHint"`
	Confidence      float64                `json:"confidence"`
	Followup        bool                   `json:"followup"`
}
