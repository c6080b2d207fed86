// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightx-workers/internal/analytics/pipeline"
	"insightx-workers/internal/common/config"
	"insightx-workers/internal/common/database"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/dataset"
	"insightx-workers/internal/dataset/datasettest"

	publishriskalert "insightx-workers/internal/workers/alerting/publish-risk-alert"
	assembleinsightresponse "insightx-workers/internal/workers/analytics/assemble-insight-response"
	executeanalyticsquery "insightx-workers/internal/workers/analytics/execute-analytics-query"
	parseanalyticsquery "insightx-workers/internal/workers/analytics/parse-analytics-query"
)

// ==========================
// 1. Workflow Harness
// ==========================

type recordingSNS struct {
	published []*sns.PublishInput
}

func (r *recordingSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	r.published = append(r.published, in)
	return &sns.PublishOutput{MessageId: aws.String(fmt.Sprintf("msg-%d", len(r.published)))}, nil
}

type workflow struct {
	parse    *parseanalyticsquery.Handler
	execute  *executeanalyticsquery.Handler
	assemble *assembleinsightresponse.Handler
	alert    *publishriskalert.Handler
	sns      *recordingSNS
}

type turn struct {
	parsed    *parseanalyticsquery.Output
	executed  *executeanalyticsquery.Output
	assembled *assembleinsightresponse.Output
	alerted   *publishriskalert.Output
}

func newWorkflow(t *testing.T, holder *dataset.Holder) *workflow {
	log := logger.NewTestLogger(t)

	cfg := config.AnalyticsConfig{
		HistorySize:          10,
		ContextTurns:         3,
		FuzzyMatching:        true,
		FuzzyThreshold:       0.8,
		ComparisonZThreshold: 2.0,
		AnomalyZThreshold:    1.5,
	}
	p := pipeline.New(pipeline.ConfigFrom(cfg), holder, log)

	mr := miniredis.RunT(t)
	cache := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	rec := &recordingSNS{}
	alert, err := publishriskalert.NewHandler(&publishriskalert.Config{
		Enabled:  true,
		TopicARN: "arn:aws:sns:ap-south-1:000000000000:insightx-e2e",
		Timeout:  time.Second,
	}, rec, log)
	require.NoError(t, err)

	return &workflow{
		parse:    parseanalyticsquery.NewHandler(&parseanalyticsquery.Config{Timeout: time.Second}, p, log),
		execute:  executeanalyticsquery.NewHandler(&executeanalyticsquery.Config{Timeout: 5 * time.Second, CacheTTL: time.Minute}, p.Executor(), holder, cache, log),
		assemble: assembleinsightresponse.NewHandler(&assembleinsightresponse.Config{Timeout: time.Second}, p, log),
		alert:    alert,
		sns:      rec,
	}
}

// handOff round-trips a job output through JSON the way process variables
// travel between service tasks.
func handOff(t *testing.T, from interface{}, to interface{}) {
	t.Helper()
	data, err := json.Marshal(from)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, to))
}

func (w *workflow) ask(t *testing.T, sessionID, question string) turn {
	t.Helper()
	ctx := context.Background()
	var tr turn
	var err error

	tr.parsed, err = w.parse.Execute(ctx, &parseanalyticsquery.Input{SessionID: sessionID, Query: question})
	require.NoError(t, err)

	var execIn executeanalyticsquery.Input
	handOff(t, tr.parsed, &execIn)
	tr.executed, err = w.execute.Execute(ctx, &execIn)
	require.NoError(t, err)

	var asmIn assembleinsightresponse.Input
	handOff(t, map[string]interface{}{
		"analyticsResult": tr.executed.AnalyticsResult,
		"confidence":      tr.parsed.Confidence,
	}, &asmIn)
	tr.assembled, err = w.assemble.Execute(ctx, &asmIn)
	require.NoError(t, err)

	var alertIn publishriskalert.Input
	handOff(t, map[string]interface{}{
		"sessionId": sessionID,
		"response":  tr.assembled.Response,
	}, &alertIn)
	tr.alerted, err = w.alert.Execute(ctx, &alertIn)
	require.NoError(t, err)

	return tr
}

// ==========================
// 2. Conversation Scenarios
// ==========================

func TestWorkflow_Conversation(t *testing.T) {
	w := newWorkflow(t, dataset.NewHolder(datasettest.Fixture()))

	first := w.ask(t, "analyst-1", "What is the fraud rate?")
	assert.False(t, first.parsed.Followup)
	assert.True(t, first.executed.AnalyticsResult.Success)
	assert.False(t, first.executed.Cached)
	assert.Contains(t, first.assembled.Response.Headline, "Fraud Rate (%)")
	assert.Contains(t, first.assembled.Response.Headline, "0.19%")

	followup := w.ask(t, "analyst-1", "What about Delhi?")
	assert.True(t, followup.parsed.Followup)
	assert.NotEmpty(t, followup.parsed.ContextHint)
	assert.Equal(t, "fraud_rate", string(followup.parsed.StructuredQuery.Metric))
	assert.True(t, followup.executed.AnalyticsResult.Success)
	assert.Less(t, followup.executed.AnalyticsResult.FilteredRows, followup.executed.AnalyticsResult.TotalRows)

	// Another analyst asking the same question hits the result cache.
	other := w.ask(t, "analyst-2", "What is the fraud rate?")
	assert.False(t, other.parsed.Followup)
	assert.True(t, other.executed.Cached)
	assert.Equal(t, first.assembled.Response.Headline, other.assembled.Response.Headline)
}

func TestWorkflow_ComparisonAndRanking(t *testing.T) {
	w := newWorkflow(t, dataset.NewHolder(datasettest.Fixture()))

	cmp := w.ask(t, "s", "Compare failure rate 3G vs 5G")
	require.True(t, cmp.executed.AnalyticsResult.Success)
	assert.Equal(t, "comparison", string(cmp.executed.AnalyticsResult.Intent))
	assert.NotEmpty(t, cmp.assembled.Response.Bullets)

	rank := w.ask(t, "s2", "Top 3 states by average amount")
	require.True(t, rank.executed.AnalyticsResult.Success)
	assert.Len(t, rank.executed.AnalyticsResult.Table, 3)
}

func TestWorkflow_InBandFailureFlowsThrough(t *testing.T) {
	w := newWorkflow(t, dataset.NewHolder(datasettest.Fixture()))

	tr := w.ask(t, "s", "What is the fraud rate in Rajasthan?")
	assert.False(t, tr.executed.AnalyticsResult.Success)
	assert.False(t, tr.assembled.Response.Success)
	assert.False(t, tr.alerted.Published)
	assert.Empty(t, w.sns.published)
}

func TestWorkflow_RiskAlert(t *testing.T) {
	rows := datasettest.Transactions()
	for i := range rows[:100] {
		rows[i].FraudFlag = true
	}
	w := newWorkflow(t, dataset.NewHolder(dataset.New(rows, nil)))

	tr := w.ask(t, "risk", "What is the fraud rate?")
	require.True(t, tr.assembled.HasCriticalRisk)
	assert.True(t, tr.alerted.Published)
	require.Len(t, w.sns.published, 1)
	assert.Equal(t, "risk", aws.ToString(w.sns.published[0].MessageAttributes["sessionId"].StringValue))
}

// ==========================
// 3. Live Dataset Load
// ==========================

// TestLiveDatasetLoad reads the configured transaction table from a running
// PostgreSQL. Set INSIGHTX_E2E=1 with configs/config.yaml pointing at it.
func TestLiveDatasetLoad(t *testing.T) {
	if os.Getenv("INSIGHTX_E2E") == "" {
		t.Skip("INSIGHTX_E2E not set")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Dataset.LoadTimeout))
	defer cancel()
	require.NoError(t, pg.WaitReady(ctx, cfg.Dataset.LoadRetries, time.Second))

	ds, err := dataset.NewPostgresLoader(pg.DB, cfg.Dataset.Table, logger.NewTestLogger(t)).Load(ctx)
	require.NoError(t, err)
	require.Positive(t, ds.Len())

	w := newWorkflow(t, dataset.NewHolder(ds))
	tr := w.ask(t, "live", "What is the failure rate by device type?")
	assert.True(t, tr.executed.AnalyticsResult.Success, tr.executed.AnalyticsResult.Error)
}
