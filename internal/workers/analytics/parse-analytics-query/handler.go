// internal/workers/analytics/parse-analytics-query/handler.go
package parseanalyticsquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"insightx-workers/internal/analytics/pipeline"
	apperrors "insightx-workers/internal/common/errors"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "parse-analytics-query"

// maxQueryLength bounds the free text accepted from a workflow variable.
const maxQueryLength = 500

var (
	ErrMissingSession = errors.New("MISSING_SESSION_ID")
	ErrEmptyQuery     = errors.New("EMPTY_QUERY")
	ErrQueryTooLong   = errors.New("QUERY_TOO_LONG")
)

// Resolver turns free text into a structured query under the session's context.
type Resolver interface {
	ResolveWithContext(sessionID, text string) (pipeline.Resolution, error)
	Reset(sessionID string)
}

type Handler struct {
	config   *Config
	logger   logger.Logger
	resolver Resolver
	errors   *apperrors.ErrorHandler
}

func NewHandler(config *Config, resolver Resolver, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		logger:   scoped,
		resolver: resolver,
		errors:   apperrors.NewErrorHandler(scoped).WithMaxRetries(config.MaxRetries),
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	text := strings.TrimSpace(input.Query)

	switch {
	case sessionID == "":
		return nil, fmt.Errorf("%w: sessionId is required", ErrMissingSession)
	case text == "":
		return nil, fmt.Errorf("%w: query is empty", ErrEmptyQuery)
	case len([]rune(text)) > maxQueryLength:
		return nil, fmt.Errorf("%w: query exceeds %d characters", ErrQueryTooLong, maxQueryLength)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if input.ResetContext {
		h.resolver.Reset(sessionID)
	}

	r, err := h.resolver.ResolveWithContext(sessionID, text)
	if err != nil {
		return nil, err
	}
	metrics.QueryConfidence.Observe(r.Query.Confidence)

	h.logger.Info("query parsed", map[string]interface{}{
		"sessionId":  sessionID,
		"intent":     r.Query.Intent,
		"metric":     r.Query.Metric,
		"followup":   r.Query.Followup,
		"confidence": r.Query.Confidence,
	})

	return &Output{
		StructuredQuery: r.Query,
		ContextHint:     r.ContextHint,
		Confidence:      r.Query.Confidence,
		Followup:        r.Query.Followup,
	}, nil
}

func toStandardError(err error) *apperrors.StandardError {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return stdErr
	}
	switch {
	case errors.Is(err, ErrMissingSession), errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrQueryTooLong):
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
