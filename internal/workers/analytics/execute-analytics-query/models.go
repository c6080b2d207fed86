// internal/workers/analytics/execute-analytics-query/models.go
package executeanalyticsquery

import (
	"encoding/json"

	"insightx-workers/internal/models"
)

type Input struct {
	StructuredQuery json.RawMessage `json:"structuredQuery"`
}

type Output struct {
	AnalyticsResult models.AnalyticsResult `json:"analyticsResult"`
	Cached          bool                   `json:"cached"`
}

// cacheKeyFields is the part of a query that determines its result.
type cacheKeyFields struct {
	Intent     models.Intent      `json:"intent"`
	Metric     models.Metric      `json:"metric"`
	GroupBy    *models.Dimension  `json:"group_by"`
	Filters    models.Filters     `json:"filters"`
	TimeWindow *models.TimeWindow `json:"time_window"`
	Sort       models.SortOrder   `json:"sort"`
	TopN       int                `json:"top_n"`
	Compare    []string           `json:"compare"`
}
