// internal/workers/analytics/assemble-insight-response/models.go
package assembleinsightresponse

import "insightx-workers/internal/models"

type Input struct {
	AnalyticsResult *models.AnalyticsResult `json:"analyticsResult"`
	Confidence      *float64                `json:"confidence"`
}

type Output struct {
	Response        models.InsightResponse `json:"response"`
	HasCriticalRisk bool                   `json:"hasCriticalRisk"`
}
