// Package response turns an AnalyticsResult into the display-ready
// InsightResponse: headline, risk flags, advice and follow-up prompts.
package response

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"insightx-workers/internal/models"
)

// Thresholds above which a value is flagged as a risk.
const (
	FraudScalarThreshold   = 0.3
	FraudGroupThreshold    = 0.25
	FailureScalarThreshold = 6.0
	FailureGroupThreshold  = 5.5

	maxAnomalyFlags    = 3
	maxRecommendations = 3
	followUpCount      = 4
)

var recommendations = map[models.Metric][]string{
	models.MetricFraudRate: {
		"Implement velocity checks for high-fraud network/device combinations.",
		"Add step-up authentication for transactions in peak fraud hours (1-3 AM).",
		"Flag transactions from high-fraud states for manual review queues.",
	},
	models.MetricFailureRate: {
		"Prioritise reliability improvements for 3G users; consider retry logic.",
		"Investigate Web browser failures; may indicate session timeout issues.",
		"Set up real-time failure rate alerts by network type.",
	},
	models.MetricAvgAmount: {
		"Apply tiered transaction limits based on merchant category risk profile.",
		"High-value categories (Education, Shopping) warrant enhanced KYC checks.",
	},
	models.MetricCount: {
		"Align customer support staffing with peak transaction hours.",
		"Optimise infrastructure capacity for high-volume states and devices.",
	},
}

// Assembler is stateless; the zero value is ready to use.
type Assembler struct {
	newID func() string
}

func NewAssembler() *Assembler {
	return &Assembler{newID: uuid.NewString}
}

// Assemble renders res. A failed result yields only the error, echoed in the
// headline, with every advisory section empty.
func (a *Assembler) Assemble(res models.AnalyticsResult, confidence float64) models.InsightResponse {
	resp := models.InsightResponse{
		QueryID:         a.id(),
		Success:         res.Success,
		Bullets:         []string{},
		RiskFlags:       []string{},
		Recommendations: []string{},
		FollowUps:       []string{},
		Confidence:      confidence,
		ConfidenceLabel: ConfidenceLabel(confidence),
		Result:          &res,
	}
	if !res.Success {
		resp.Error = res.Error
		resp.Headline = res.Error
		return resp
	}

	resp.Headline = headline(res)
	resp.Narrative = res.Narrative
	resp.Bullets = append(resp.Bullets, res.Insights...)
	resp.RiskFlags = riskFlags(res)
	resp.Recommendations = recommend(res.Metric)
	resp.FollowUps = FollowUps(res)
	resp.ChartType = ChartType(res)
	resp.HasAnomalies = len(res.Anomalies) > 0
	resp.AnomalyCount = len(res.Anomalies)
	return resp
}

func (a *Assembler) id() string {
	if a == nil || a.newID == nil {
		return uuid.NewString()
	}
	return a.newID()
}

func headline(res models.AnalyticsResult) string {
	if res.HasCompare() {
		return strings.Join(res.Compare, " vs ") + " — " + res.MetricLabel
	}
	if res.Intent == models.IntentTrend {
		return fmt.Sprintf("%s trend over %s", res.MetricLabel, res.DimLabel)
	}
	if res.Intent == models.IntentAnomaly {
		return fmt.Sprintf("**%d anomalies** found in %s by %s", len(res.Anomalies), res.MetricLabel, res.DimLabel)
	}
	if res.ValueFormatted != "" && res.Intent == models.IntentSingle {
		return fmt.Sprintf("%s: **%s**", res.MetricLabel, res.ValueFormatted)
	}
	if len(res.Table) > 0 {
		best := res.Table[0]
		for _, r := range res.Table[1:] {
			if r.Value > best.Value {
				best = r
			}
		}
		return fmt.Sprintf("Top %s for %s: **%s** at **%s**", res.DimLabel, res.MetricLabel, best.Group, best.Formatted)
	}
	return res.MetricLabel + " Analysis"
}

func riskFlags(res models.AnalyticsResult) []string {
	flags := []string{}
	v, hasScalar := res.Scalar()

	switch res.Metric {
	case models.MetricFraudRate:
		if hasScalar && v > FraudScalarThreshold {
			flags = append(flags, "🚨 **Critical:** Overall fraud rate exceeds 0.3%; immediate investigation recommended.")
		}
		for _, r := range res.Table {
			if r.Value > FraudGroupThreshold {
				flags = append(flags, fmt.Sprintf("⚠️ **%s** fraud rate %s is above threshold.", r.Group, r.Formatted))
			}
		}

	case models.MetricFailureRate:
		if hasScalar && v > FailureScalarThreshold {
			flags = append(flags, "🚨 **Critical:** Failure rate above 6%; SLA breach risk.")
		}
		for _, r := range res.Table {
			if r.Value > FailureGroupThreshold {
				flags = append(flags, fmt.Sprintf("⚠️ **%s** failure rate %s exceeds the 5.5%% benchmark.", r.Group, r.Formatted))
			}
		}
	}

	for i, an := range res.Anomalies {
		if i == maxAnomalyFlags {
			break
		}
		dir := "above"
		if an.Direction == models.DirectionLow {
			dir = "below"
		}
		flags = append(flags, fmt.Sprintf("📊 **%s** is significantly %s average (z=%+.2f).", an.Group, dir, an.ZScore))
	}
	return flags
}

func recommend(m models.Metric) []string {
	recs := recommendations[m]
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return append([]string{}, recs...)
}

// ConfidenceLabel buckets a confidence score.
func ConfidenceLabel(c float64) string {
	switch {
	case c >= 0.85:
		return "Very High"
	case c >= 0.70:
		return "High"
	case c >= 0.55:
		return "Medium"
	default:
		return "Low"
	}
}

// ChartType picks the visualization for a result by fixed precedence.
func ChartType(res models.AnalyticsResult) string {
	switch {
	case res.HasCompare():
		return models.ChartComparison
	case res.Intent == models.IntentTrend:
		return models.ChartLine
	case res.Intent == models.IntentAnomaly:
		return models.ChartAnomaly
	case res.Intent == models.IntentSingle && res.Value != nil && len(res.Table) == 0:
		return models.ChartGauge
	case res.Metric == models.MetricCount && res.GroupBy != nil &&
		(*res.GroupBy == models.DimDeviceType || *res.GroupBy == models.DimTransactionType):
		return models.ChartDonut
	default:
		return models.ChartBar
	}
}

// metricPhrase is how follow-up prompts name a metric so the parser reads it back.
func metricPhrase(m models.Metric) string {
	switch m {
	case models.MetricFraudRate:
		return "fraud rate"
	case models.MetricFailureRate:
		return "failure rate"
	case models.MetricAvgAmount:
		return "average amount"
	case models.MetricTotalVolume:
		return "total volume"
	default:
		return "transaction count"
	}
}
