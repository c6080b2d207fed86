// internal/workers/analytics/execute-analytics-query/handler_test.go
package executeanalyticsquery

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"insightx-workers/internal/analytics/engine"
	"insightx-workers/internal/common/database"
	apperrors "insightx-workers/internal/common/errors"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/dataset"
	"insightx-workers/internal/dataset/datasettest"
	"insightx-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, CacheTTL: time.Minute}
}

func createTestHandler(t *testing.T, holder *dataset.Holder) (*Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	h := NewHandler(createTestConfig(), engine.NewExecutor(engine.DefaultOptions()), holder, cache, logger.NewTestLogger(t))
	return h, mr
}

func createInput(t *testing.T, q map[string]interface{}) *Input {
	t.Helper()
	raw, err := json.Marshal(q)
	require.NoError(t, err)
	return &Input{StructuredQuery: raw}
}

func fixtureHolder() *dataset.Holder {
	return dataset.NewHolder(datasettest.Fixture())
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		query          map[string]interface{}
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "overall fraud rate",
			query: map[string]interface{}{"intent": "single", "metric": "fraud_rate", "raw_query": "fraud rate"},
			validateOutput: func(t *testing.T, output *Output) {
				res := output.AnalyticsResult
				require.True(t, res.Success, res.Error)
				assert.Equal(t, "0.19%", res.ValueFormatted)
				assert.Equal(t, datasettest.FixtureSize, res.FilteredRows)
			},
		},
		{
			name: "comparison restricted to a segment set",
			query: map[string]interface{}{
				"intent":   "comparison",
				"metric":   "failure_rate",
				"group_by": "network_type",
				"compare":  []string{"3G", "5G"},
			},
			validateOutput: func(t *testing.T, output *Output) {
				res := output.AnalyticsResult
				require.True(t, res.Success, res.Error)
				require.Len(t, res.Table, 2)
				assert.Equal(t, "3G", res.Table[0].Group)
			},
		},
		{
			name: "filters given as loose JSON types",
			query: map[string]interface{}{
				"intent":  "single",
				"metric":  "count",
				"filters": map[string]interface{}{"device_type": "iOS", "is_weekend": true},
			},
			validateOutput: func(t *testing.T, output *Output) {
				res := output.AnalyticsResult
				require.True(t, res.Success, res.Error)
				assert.Less(t, res.FilteredRows, res.TotalRows)
				assert.Equal(t, "1", res.Filters[models.FilterIsWeekend])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := createTestHandler(t, fixtureHolder())
			output, err := h.Execute(context.Background(), createInput(t, tt.query))
			require.NoError(t, err)
			require.NotNil(t, output)
			assert.False(t, output.Cached)
			tt.validateOutput(t, output)
		})
	}
}

// ==========================
// Result Cache Tests
// ==========================

func TestHandler_Execute_CachesSuccessfulResults(t *testing.T) {
	h, mr := createTestHandler(t, fixtureHolder())
	ctx := context.Background()

	first, err := h.Execute(ctx, createInput(t, map[string]interface{}{
		"intent": "ranking", "metric": "avg_amount", "group_by": "sender_state", "raw_query": "top states by amount",
	}))
	require.NoError(t, err)
	require.False(t, first.Cached)
	assert.Len(t, mr.Keys(), 1)

	second, err := h.Execute(ctx, createInput(t, map[string]interface{}{
		"intent": "ranking", "metric": "avg_amount", "group_by": "sender_state", "raw_query": "rank states by average amount",
		"confidence": 0.9,
	}))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.AnalyticsResult.Table, second.AnalyticsResult.Table)
	assert.Equal(t, first.AnalyticsResult.Narrative, second.AnalyticsResult.Narrative)
	assert.Contains(t, second.AnalyticsResult.QueryJSON, "rank states by average amount")
}

func TestHandler_Execute_InBandFailureNotCached(t *testing.T) {
	h, mr := createTestHandler(t, fixtureHolder())

	output, err := h.Execute(context.Background(), createInput(t, map[string]interface{}{
		"intent": "single", "metric": "profit",
	}))
	require.NoError(t, err)

	res := output.AnalyticsResult
	assert.False(t, res.Success)
	assert.Equal(t, string(apperrors.ErrCodeUnknownMetric), res.ErrorCode)
	assert.Contains(t, res.Error, "Unknown metric 'profit'")
	assert.Empty(t, mr.Keys())
}

func TestHandler_Execute_CorruptCacheEntryRecomputes(t *testing.T) {
	h, mr := createTestHandler(t, fixtureHolder())
	ds := datasettest.Fixture()

	q := models.NewStructuredQuery("")
	q.Metric = models.MetricFraudRate
	require.NoError(t, mr.Set(CacheKey(ds.Fingerprint(), q), "{broken"))

	output, err := h.Execute(context.Background(), createInput(t, map[string]interface{}{
		"intent": "single", "metric": "fraud_rate",
	}))
	require.NoError(t, err)
	assert.False(t, output.Cached)
	assert.True(t, output.AnalyticsResult.Success)
}

func TestHandler_Execute_WithoutCache(t *testing.T) {
	h := NewHandler(createTestConfig(), engine.NewExecutor(engine.DefaultOptions()), fixtureHolder(), nil, logger.NewNoOpLogger())
	query := map[string]interface{}{"intent": "single", "metric": "count"}

	for i := 0; i < 2; i++ {
		output, err := h.Execute(context.Background(), createInput(t, query))
		require.NoError(t, err)
		assert.False(t, output.Cached)
		assert.True(t, output.AnalyticsResult.Success)
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_InvalidQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   *Input
		wantErr error
	}{
		{"missing query", &Input{}, ErrMissingQuery},
		{"null query", &Input{StructuredQuery: json.RawMessage("null")}, ErrMissingQuery},
		{"unknown intent", &Input{StructuredQuery: json.RawMessage(`{"intent":"forecast","metric":"count"}`)}, ErrInvalidQuery},
		{"hour out of range", &Input{StructuredQuery: json.RawMessage(`{"intent":"single","metric":"count","time_window":{"type":"hour_range","min":22,"max":25}}`)}, ErrInvalidQuery},
		{"not an object", &Input{StructuredQuery: json.RawMessage(`"fraud rate"`)}, ErrInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := createTestHandler(t, fixtureHolder())
			output, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, apperrors.ErrCodeInvalidQuery, toStandardError(err).Code)
		})
	}
}

func TestHandler_Execute_DatasetUnavailable(t *testing.T) {
	h, _ := createTestHandler(t, dataset.NewHolder(nil))

	_, err := h.Execute(context.Background(), createInput(t, map[string]interface{}{"intent": "single", "metric": "count"}))
	require.Error(t, err)

	stdErr := toStandardError(err)
	assert.Equal(t, apperrors.ErrCodeDatasetUnavailable, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

// ==========================
// Cache Key Tests
// ==========================

func TestCacheKey(t *testing.T) {
	base := models.NewStructuredQuery("failure rate by bank")
	base.Metric = models.MetricFailureRate
	base.GroupBy = models.DimensionPtr(models.DimSenderBank)
	base.Filters = models.Filters{models.FilterFor(models.DimDeviceType): "iOS", models.FilterIsWeekend: "1"}

	reworded := base.Clone()
	reworded.RawQuery = "bank failure rates"
	reworded.Confidence = 0.9
	reworded.Followup = true
	assert.Equal(t, CacheKey("fp", base), CacheKey("fp", reworded))

	reordered := base.Clone()
	reordered.Filters = models.Filters{models.FilterIsWeekend: "1", models.FilterFor(models.DimDeviceType): "iOS"}
	assert.Equal(t, CacheKey("fp", base), CacheKey("fp", reordered))

	narrowed := base.Clone()
	narrowed.Compare = []string{"HDFC", "SBI"}
	assert.NotEqual(t, CacheKey("fp", base), CacheKey("fp", narrowed))

	assert.NotEqual(t, CacheKey("fp", base), CacheKey("other", base))
	assert.Contains(t, CacheKey("fp", base), "insightx:result:fp:")
}
