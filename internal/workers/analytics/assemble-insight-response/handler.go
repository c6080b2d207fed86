// internal/workers/analytics/assemble-insight-response/handler.go
package assembleinsightresponse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	apperrors "insightx-workers/internal/common/errors"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/common/metrics"
	"insightx-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "assemble-insight-response"

var (
	ErrMissingResult     = errors.New("MISSING_ANALYTICS_RESULT")
	ErrInvalidConfidence = errors.New("INVALID_CONFIDENCE")
)

// Assembler renders an analytics result for display.
type Assembler interface {
	Assemble(res models.AnalyticsResult, confidence float64) models.InsightResponse
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	assembler Assembler
	errors    *apperrors.ErrorHandler
}

func NewHandler(config *Config, assembler Assembler, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		logger:    scoped,
		assembler: assembler,
		errors:    apperrors.NewErrorHandler(scoped).WithMaxRetries(config.MaxRetries),
	}
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

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.AnalyticsResult == nil {
		return nil, fmt.Errorf("%w: analyticsResult is required", ErrMissingResult)
	}

	// Absent confidence falls back to the result's own query echo, then zero.
	confidence := 0.0
	if input.Confidence != nil {
		confidence = *input.Confidence
	} else if q, err := models.ParseStructuredQuery([]byte(input.AnalyticsResult.QueryJSON)); err == nil {
		confidence = q.Confidence
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvalidConfidence, confidence)
	}

	resp := h.assembler.Assemble(*input.AnalyticsResult, confidence)
	if !h.config.IncludeResult {
		resp.Result = nil
	}

	critical := len(resp.RiskFlags) > 0
	h.logger.Info("insight response assembled", map[string]interface{}{
		"queryId":         resp.QueryID,
		"success":         resp.Success,
		"chartType":       resp.ChartType,
		"riskFlags":       len(resp.RiskFlags),
		"hasCriticalRisk": critical,
	})

	return &Output{Response: resp, HasCriticalRisk: critical}, nil
}

func toStandardError(err error) *apperrors.StandardError {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return stdErr
	}
	switch {
	case errors.Is(err, ErrMissingResult), errors.Is(err, ErrInvalidConfidence):
		return apperrors.NewInvalidInputError(err.Error())
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
