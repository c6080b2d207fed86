// internal/workers/alerting/publish-risk-alert/handler.go
package publishriskalert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	awsclient "insightx-workers/internal/common/aws"
	apperrors "insightx-workers/internal/common/errors"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/common/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "publish-risk-alert"

// SNS rejects subjects longer than 100 characters.
const maxSubjectLength = 100

var (
	ErrMissingResponse = errors.New("MISSING_RESPONSE")
	ErrPublishFailed   = errors.New("ALERT_PUBLISH_FAILED")
)

type Handler struct {
	config    *Config
	logger    logger.Logger
	publisher awsclient.Publisher
	errors    *apperrors.ErrorHandler
}

func NewHandler(config *Config, publisher awsclient.Publisher, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if config.Enabled && publisher == nil {
		return nil, fmt.Errorf("invalid configuration for %s: publisher is required when alerts are enabled", TaskType)
	}

	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		logger:    scoped,
		publisher: publisher,
		errors:    apperrors.NewErrorHandler(scoped).WithMaxRetries(config.MaxRetries),
	}, nil
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
	if input.Response == nil {
		return nil, fmt.Errorf("%w: response is required", ErrMissingResponse)
	}
	resp := input.Response

	switch {
	case !h.config.Enabled:
		return &Output{Reason: ReasonDisabled}, nil
	case !resp.Success:
		return &Output{Reason: ReasonFailed}, nil
	case len(resp.RiskFlags) == 0:
		return &Output{Reason: ReasonNoRisk}, nil
	}

	out, err := h.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.TopicARN),
		Subject:  aws.String(subjectLine(resp.Headline)),
		Message:  aws.String(alertBody(input.SessionID, resp.QueryID, resp.RiskFlags, resp.Narrative)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"sessionId": {DataType: aws.String("String"), StringValue: aws.String(orUnknown(input.SessionID))},
			"queryId":   {DataType: aws.String("String"), StringValue: aws.String(orUnknown(resp.QueryID))},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	messageID := aws.ToString(out.MessageId)
	metrics.RiskAlertsPublished.Inc()
	h.logger.Info("risk alert published", map[string]interface{}{
		"sessionId": input.SessionID,
		"queryId":   resp.QueryID,
		"messageId": messageID,
		"flags":     len(resp.RiskFlags),
	})

	return &Output{Published: true, MessageID: messageID}, nil
}

// subjectLine strips markdown emphasis and non-ASCII symbols from a headline
// and fits it into an SNS subject.
func subjectLine(headline string) string {
	headline = strings.ReplaceAll(headline, "**", "")
	var b strings.Builder
	for _, r := range headline {
		switch {
		case r > unicode.MaxASCII:
			continue
		case unicode.IsPrint(r):
			b.WriteRune(r)
		}
	}
	subject := strings.Join(strings.Fields(b.String()), " ")
	if subject == "" {
		subject = "InsightX risk alert"
	}
	if len(subject) > maxSubjectLength {
		subject = strings.TrimSpace(subject[:maxSubjectLength-3]) + "..."
	}
	return subject
}

func alertBody(sessionID, queryID string, flags []string, narrative string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nQuery: %s\n\nRisk flags:\n", orUnknown(sessionID), orUnknown(queryID))
	for _, f := range flags {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	if narrative != "" {
		fmt.Fprintf(&b, "\n%s\n", narrative)
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func toStandardError(err error) *apperrors.StandardError {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return stdErr
	}
	switch {
	case errors.Is(err, ErrMissingResponse):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, ErrPublishFailed):
		return apperrors.NewAlertPublishFailedError(err)
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
