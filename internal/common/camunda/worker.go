// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"insightx-workers/internal/common/config"
	"insightx-workers/internal/common/observability"
)

// Job outcomes recorded on job.count and job.duration.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// StartWorker opens a job worker for taskType. A disabled worker returns nil.
func StartWorker(
	client zbc.Client,
	taskType string,
	wcfg config.WorkerConfig,
	handlerFunc worker.JobHandler,
	log *zap.Logger,
	obs *observability.Observability,
) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handlerFunc, obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return jobWorker
}

// Instrument wraps a handler so every job is counted and timed, labelled by
// whether the handler failed or threw an error for it.
func Instrument(taskType string, handlerFunc worker.JobHandler, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		tracked := &outcomeClient{JobClient: client}

		handlerFunc(tracked, job)

		status := StatusCompleted
		if tracked.failed.Load() {
			status = StatusFailed
		}
		ctx := context.Background()
		obs.RecordJobProcessed(ctx, taskType, status)
		obs.RecordJobDuration(ctx, taskType, time.Since(start), status)
	}
}

type outcomeClient struct {
	worker.JobClient
	failed atomic.Bool
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.failed.Store(true)
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.failed.Store(true)
	return c.JobClient.NewThrowErrorCommand()
}
