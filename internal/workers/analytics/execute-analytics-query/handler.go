// internal/workers/analytics/execute-analytics-query/handler.go
package executeanalyticsquery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"insightx-workers/internal/common/database"
	apperrors "insightx-workers/internal/common/errors"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/common/metrics"
	"insightx-workers/internal/common/observability"
	"insightx-workers/internal/common/validation"
	"insightx-workers/internal/dataset"
	"insightx-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "execute-analytics-query"

const cacheKeyPrefix = "insightx:result:"

var (
	ErrMissingQuery = errors.New("MISSING_STRUCTURED_QUERY")
	ErrInvalidQuery = errors.New("INVALID_QUERY")
)

// Executor runs a structured query against a dataset. Analytics failures are
// reported in-band on the result.
type Executor interface {
	Execute(q models.StructuredQuery, ds *dataset.Dataset) models.AnalyticsResult
}

// DatasetSource yields the currently loaded dataset, or nil before the first load.
type DatasetSource interface {
	Get() *dataset.Dataset
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	executor  Executor
	data      DatasetSource
	cache     *database.RedisClient
	validator *validation.Validator
	obs       *observability.Observability
	errors    *apperrors.ErrorHandler
}

// NewHandler wires the worker; cache may be nil to disable result caching.
func NewHandler(config *Config, executor Executor, data DatasetSource, cache *database.RedisClient, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		logger:    scoped,
		executor:  executor,
		data:      data,
		cache:     cache,
		validator: validation.MustStructuredQueryValidator(),
		errors:    apperrors.NewErrorHandler(scoped).WithMaxRetries(config.MaxRetries),
	}
}

// WithObservability records filtered row counts on obs.
func (h *Handler) WithObservability(obs *observability.Observability) *Handler {
	h.obs = obs
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, toStandardError(err))
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	q, err := h.decodeQuery(input.StructuredQuery)
	if err != nil {
		return nil, err
	}

	ds := h.data.Get()
	if ds == nil {
		return nil, apperrors.NewDatasetUnavailableError()
	}

	key := CacheKey(ds.Fingerprint(), q)
	if res, ok := h.lookup(ctx, key); ok {
		res.QueryJSON = q.JSON()
		h.logger.Debug("result served from cache", map[string]interface{}{"cacheKey": key})
		return &Output{AnalyticsResult: res, Cached: true}, nil
	}

	res := h.executor.Execute(q, ds)
	h.record(ctx, res)

	if res.Success {
		h.store(ctx, key, res)
	} else {
		h.logger.Info("query answered in-band with an error", map[string]interface{}{
			"errorCode": res.ErrorCode,
			"error":     res.Error,
		})
	}

	return &Output{AnalyticsResult: res}, nil
}

func (h *Handler) decodeQuery(raw json.RawMessage) (models.StructuredQuery, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return models.StructuredQuery{}, fmt.Errorf("%w: structuredQuery is required", ErrMissingQuery)
	}

	result, err := h.validator.ValidateJSON(raw)
	if err != nil {
		return models.StructuredQuery{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if !result.Valid {
		return models.StructuredQuery{}, fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(result.GetErrorMessages(), "; "))
	}

	q, err := models.ParseStructuredQuery(raw)
	if err != nil {
		return models.StructuredQuery{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return q, nil
}

func (h *Handler) lookup(ctx context.Context, key string) (models.AnalyticsResult, bool) {
	if h.cache == nil {
		return models.AnalyticsResult{}, false
	}

	var res models.AnalyticsResult
	err := h.cache.GetJSON(ctx, key, &res)
	switch {
	case err == nil:
		metrics.ResultCacheHits.Inc()
		return res, true
	case errors.Is(err, database.ErrCacheMiss):
		metrics.ResultCacheMisses.Inc()
	default:
		metrics.ResultCacheMisses.Inc()
		h.logger.Warn("result cache lookup failed", map[string]interface{}{
			"cacheKey": key,
			"error":    apperrors.NewCacheError("lookup", err).Details,
		})
	}
	return models.AnalyticsResult{}, false
}

func (h *Handler) store(ctx context.Context, key string, res models.AnalyticsResult) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetJSON(ctx, key, res, h.config.CacheTTL); err != nil {
		h.logger.Warn("result cache store failed", map[string]interface{}{
			"cacheKey": key,
			"error":    apperrors.NewCacheError("store", err).Details,
		})
	}
}

func (h *Handler) record(ctx context.Context, res models.AnalyticsResult) {
	status := "success"
	if !res.Success {
		status = strings.ToLower(res.ErrorCode)
	}
	metrics.QueriesTotal.WithLabelValues(string(res.Intent), string(res.Metric), status).Inc()
	if n := len(res.Anomalies); n > 0 {
		metrics.AnomaliesDetected.WithLabelValues(string(res.Metric)).Add(float64(n))
	}
	h.obs.RecordFilteredRows(ctx, string(res.Intent), res.FilteredRows)
}

// CacheKey identifies a result by dataset content and the query fields that
// shape it. Wording, confidence and follow-up state do not change the result.
func CacheKey(fingerprint string, q models.StructuredQuery) string {
	fields := cacheKeyFields{
		Intent:     q.Intent,
		Metric:     q.Metric,
		GroupBy:    q.GroupBy,
		Filters:    q.Filters,
		TimeWindow: q.TimeWindow,
		Sort:       q.Sort,
		TopN:       q.TopN,
		Compare:    q.Compare,
	}
	if fields.Filters == nil {
		fields.Filters = models.Filters{}
	}
	if fields.Compare == nil {
		fields.Compare = []string{}
	}

	raw, _ := json.Marshal(fields)
	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + fingerprint + ":" + hex.EncodeToString(sum[:16])
}

func toStandardError(err error) *apperrors.StandardError {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return stdErr
	}
	switch {
	case errors.Is(err, ErrMissingQuery), errors.Is(err, ErrInvalidQuery):
		return apperrors.NewInvalidQueryError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewJobTimeoutError(TaskType)
	}
	return apperrors.NewInternalError(err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
