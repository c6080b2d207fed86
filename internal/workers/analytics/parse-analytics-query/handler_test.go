// internal/workers/analytics/parse-analytics-query/handler_test.go
package parseanalyticsquery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"insightx-workers/internal/analytics/pipeline"
	apperrors "insightx-workers/internal/common/errors"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/dataset"
	"insightx-workers/internal/dataset/datasettest"
	"insightx-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	p := pipeline.New(pipeline.Config{}, dataset.NewHolder(datasettest.Fixture()), logger.NewTestLogger(t))
	return NewHandler(&Config{Timeout: time.Second}, p, logger.NewTestLogger(t))
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
			name:  "overall fraud rate",
			input: &Input{SessionID: "s1", Query: "What is the overall fraud rate?"},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, models.IntentSingle, output.StructuredQuery.Intent)
				assert.Equal(t, models.MetricFraudRate, output.StructuredQuery.Metric)
				assert.Empty(t, output.ContextHint)
				assert.False(t, output.Followup)
				assert.Equal(t, output.StructuredQuery.Confidence, output.Confidence)
			},
		},
		{
			name:  "comparison by device",
			input: &Input{SessionID: "s2", Query: "  Compare fraud rate by device type  "},
			validateOutput: func(t *testing.T, output *Output) {
				q := output.StructuredQuery
				assert.Equal(t, models.IntentComparison, q.Intent)
				require.NotNil(t, q.GroupBy)
				assert.Equal(t, models.DimDeviceType, *q.GroupBy)
				assert.Equal(t, "Compare fraud rate by device type", q.RawQuery)
			},
		},
		{
			name:  "network compare set",
			input: &Input{SessionID: "s3", Query: "3G vs 5G failure rate"},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, []string{"3G", "5G"}, output.StructuredQuery.Compare)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t)
			output, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			require.NotNil(t, output)
			tt.validateOutput(t, output)
		})
	}
}

// ==========================
// Conversation Context Tests
// ==========================

func TestHandler_Execute_FollowUpUsesSessionContext(t *testing.T) {
	h := createTestHandler(t)
	ctx := context.Background()

	_, err := h.Execute(ctx, &Input{SessionID: "s1", Query: "failure rate by bank"})
	require.NoError(t, err)

	output, err := h.Execute(ctx, &Input{SessionID: "s1", Query: "what about only HDFC?"})
	require.NoError(t, err)

	assert.True(t, output.Followup)
	assert.Contains(t, output.ContextHint, `User: "failure rate by bank"`)
	assert.Equal(t, models.MetricFailureRate, output.StructuredQuery.Metric)
	assert.Equal(t, "HDFC", output.StructuredQuery.Filters[models.FilterFor(models.DimSenderBank)])
}

func TestHandler_Execute_ResetContext(t *testing.T) {
	h := createTestHandler(t)
	ctx := context.Background()

	_, err := h.Execute(ctx, &Input{SessionID: "s1", Query: "failure rate by bank"})
	require.NoError(t, err)

	output, err := h.Execute(ctx, &Input{SessionID: "s1", Query: "what about only HDFC?", ResetContext: true})
	require.NoError(t, err)

	assert.False(t, output.Followup)
	assert.Empty(t, output.ContextHint)
}

func TestHandler_Execute_SessionsAreIsolated(t *testing.T) {
	h := createTestHandler(t)
	ctx := context.Background()

	_, err := h.Execute(ctx, &Input{SessionID: "a", Query: "failure rate by bank"})
	require.NoError(t, err)

	output, err := h.Execute(ctx, &Input{SessionID: "b", Query: "what is the fraud rate"})
	require.NoError(t, err)
	assert.Empty(t, output.ContextHint)
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
		{"missing session", &Input{Query: "fraud rate"}, ErrMissingSession},
		{"blank session", &Input{SessionID: "   ", Query: "fraud rate"}, ErrMissingSession},
		{"empty query", &Input{SessionID: "s1", Query: "  "}, ErrEmptyQuery},
		{"query too long", &Input{SessionID: "s1", Query: strings.Repeat("fraud ", 100)}, ErrQueryTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t)
			output, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.wantErr)

			stdErr := toStandardError(err)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
			assert.False(t, stdErr.Retryable)
		})
	}
}

func TestHandler_Execute_CancelledContext(t *testing.T) {
	h := createTestHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Execute(ctx, &Input{SessionID: "s1", Query: "fraud rate"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToStandardError(t *testing.T) {
	assert.Equal(t, apperrors.ErrCodeJobTimeout, toStandardError(context.DeadlineExceeded).Code)
	assert.Equal(t, apperrors.ErrCodeInternal, toStandardError(errors.New("boom")).Code)

	existing := apperrors.NewDatasetUnavailableError()
	assert.Same(t, existing, toStandardError(existing))
}
