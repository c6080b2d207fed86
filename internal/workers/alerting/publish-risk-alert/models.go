// internal/workers/alerting/publish-risk-alert/models.go
package publishriskalert

import "insightx-workers/internal/models"

type Input struct {
	SessionID string                  `json:"sessionId"`
	Response  *models.InsightResponse `json:"response"`
}

type Output struct {
	Published bool   `json:"published"`
	MessageID string `json:"messageId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Skip reasons reported when nothing is published.
const (
	ReasonDisabled = "alerts disabled"
	ReasonNoRisk   = "no risk flags"
	ReasonFailed   = "response not successful"
)
