// internal/workers/analytics/assemble-insight-response/handler_test.go
package assembleinsightresponse

import (
	"context"
	"math"
	"testing"
	"time"

	"insightx-workers/internal/analytics/response"
	apperrors "insightx-workers/internal/common/errors"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, includeResult bool) *Handler {
	cfg := &Config{Timeout: time.Second, IncludeResult: includeResult}
	return NewHandler(cfg, response.NewAssembler(), logger.NewTestLogger(t))
}

func floatPtr(v float64) *float64 {
	return &v
}

func scalarResult(metric models.Metric, value float64, formatted string) *models.AnalyticsResult {
	q := models.NewStructuredQuery("overall " + string(metric))
	q.Metric = metric
	q.Confidence = 0.75
	return &models.AnalyticsResult{
		Success:        true,
		Intent:         models.IntentSingle,
		Metric:         metric,
		MetricLabel:    metric.Label(),
		Filters:        models.Filters{},
		Compare:        []string{},
		Value:          floatPtr(value),
		ValueFormatted: formatted,
		TotalRows:      1000,
		FilteredRows:   1000,
		Narrative:      "Overall figure.",
		Insights:       []string{"one", "two"},
		Anomalies:      []models.Anomaly{},
		QueryJSON:      q.JSON(),
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "critical fraud rate raises a risk flag",
			input: &Input{AnalyticsResult: scalarResult(models.MetricFraudRate, 0.45, "0.45%"), Confidence: floatPtr(0.9)},
			validateOutput: func(t *testing.T, output *Output) {
				resp := output.Response
				assert.True(t, resp.Success)
				assert.Equal(t, "Fraud Rate (%): **0.45%**", resp.Headline)
				assert.Equal(t, models.ChartGauge, resp.ChartType)
				assert.Equal(t, "Very High", resp.ConfidenceLabel)
				require.NotEmpty(t, resp.RiskFlags)
				assert.Contains(t, resp.RiskFlags[0], "Critical")
				assert.True(t, output.HasCriticalRisk)
				assert.NotEmpty(t, resp.QueryID)
			},
		},
		{
			name:  "healthy fraud rate has no flags",
			input: &Input{AnalyticsResult: scalarResult(models.MetricFraudRate, 0.12, "0.12%"), Confidence: floatPtr(0.6)},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Empty(t, output.Response.RiskFlags)
				assert.False(t, output.HasCriticalRisk)
				assert.Equal(t, []string{"one", "two"}, output.Response.Bullets)
			},
		},
		{
			name: "in-band failure only echoes the error",
			input: &Input{
				AnalyticsResult: &models.AnalyticsResult{
					Success:   false,
					Error:     "No transactions matched filters {device_type: iOS, sender_state: Gujarat}. Try broadening the query.",
					ErrorCode: string(apperrors.ErrCodeNoRowsMatched),
					Metric:    models.MetricFraudRate,
				},
				Confidence: floatPtr(0.8),
			},
			validateOutput: func(t *testing.T, output *Output) {
				resp := output.Response
				assert.False(t, resp.Success)
				assert.Equal(t, resp.Error, resp.Headline)
				assert.Empty(t, resp.FollowUps)
				assert.Empty(t, resp.RiskFlags)
				assert.False(t, output.HasCriticalRisk)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := createTestHandler(t, false).Execute(context.Background(), tt.input)
			require.NoError(t, err)
			require.NotNil(t, output)
			assert.Nil(t, output.Response.Result)
			tt.validateOutput(t, output)
		})
	}
}

func TestHandler_Execute_ConfidenceFromQueryEcho(t *testing.T) {
	output, err := createTestHandler(t, false).Execute(context.Background(), &Input{
		AnalyticsResult: scalarResult(models.MetricCount, 1000, "1,000"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.75, output.Response.Confidence)
	assert.Equal(t, "High", output.Response.ConfidenceLabel)
}

func TestHandler_Execute_IncludeResult(t *testing.T) {
	res := scalarResult(models.MetricAvgAmount, 1234.5, "₹1,234.50")
	output, err := createTestHandler(t, true).Execute(context.Background(), &Input{AnalyticsResult: res, Confidence: floatPtr(0.5)})
	require.NoError(t, err)
	require.NotNil(t, output.Response.Result)
	assert.Equal(t, res.ValueFormatted, output.Response.Result.ValueFormatted)
}

// ==========================
// Validation Tests
// ==========================

func TestHandler_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		input   *Input
		wantErr error
	}{
		{"missing result", &Input{Confidence: floatPtr(0.5)}, ErrMissingResult},
		{"negative confidence", &Input{AnalyticsResult: scalarResult(models.MetricCount, 1, "1"), Confidence: floatPtr(-0.1)}, ErrInvalidConfidence},
		{"confidence above one", &Input{AnalyticsResult: scalarResult(models.MetricCount, 1, "1"), Confidence: floatPtr(1.5)}, ErrInvalidConfidence},
		{"NaN confidence", &Input{AnalyticsResult: scalarResult(models.MetricCount, 1, "1"), Confidence: floatPtr(math.NaN())}, ErrInvalidConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := createTestHandler(t, false).Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, toStandardError(err).Code)
		})
	}
}
