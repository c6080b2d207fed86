// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"insightx-workers/internal/analytics/pipeline"
	"insightx-workers/internal/common/aws"
	"insightx-workers/internal/common/camunda"
	"insightx-workers/internal/common/config"
	"insightx-workers/internal/common/database"
	apperrors "insightx-workers/internal/common/errors"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/common/metrics"
	"insightx-workers/internal/common/observability"
	"insightx-workers/internal/dataset"
	"insightx-workers/pkg/registry"

	// Alerting Workers (1)
	pra "insightx-workers/internal/workers/alerting/publish-risk-alert"

	// Analytics Workers (3)
	air "insightx-workers/internal/workers/analytics/assemble-insight-response"
	eaq "insightx-workers/internal/workers/analytics/execute-analytics-query"
	paq "insightx-workers/internal/workers/analytics/parse-analytics-query"
)

const (
	sessionSweepInterval = time.Minute
	registryPath         = "configs/activity-registry.json"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output).
		With(zap.String("service", cfg.App.Name))
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name, zapLog)
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Init Zeebe Client with retry ---
	zeebe, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.WaitReady(ctx, 3, time.Second)
	}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		// Result caching is optional; the executor recomputes on every job.
		zapLog.Warn("redis unavailable, result cache disabled", zap.Error(err))
		redis = nil
	} else {
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Load the transaction dataset ---
	holder := dataset.NewHolder(nil)
	go loadDataset(ctx, cfg, pg, holder, zapLog, log)

	p := pipeline.New(pipeline.ConfigFrom(cfg.Analytics), holder, log)

	// --- Register Workers ---
	client := zeebe.GetClient()
	var workers []worker.JobWorker
	var taskTypes []string
	register := func(taskType string, handle worker.JobHandler) {
		taskTypes = append(taskTypes, taskType)
		if w := camunda.StartWorker(client, taskType, config.GetWorkerConfig(cfg, taskType), handle, zapLog, obs); w != nil {
			workers = append(workers, w)
		}
	}

	// --- 1. Analytics Workers (3) ---
	{
		wcfg := config.GetWorkerConfig(cfg, paq.TaskType)
		handler := paq.NewHandler(&paq.Config{
			Timeout:    config.GetDuration(wcfg.Timeout),
			MaxRetries: wcfg.MaxRetries,
		}, p, log)
		register(paq.TaskType, handler.Handle)
	}

	{
		wcfg := config.GetWorkerConfig(cfg, eaq.TaskType)
		handler := eaq.NewHandler(&eaq.Config{
			Timeout:    config.GetDuration(wcfg.Timeout),
			CacheTTL:   config.GetSeconds(cfg.Analytics.CacheTTL),
			MaxRetries: wcfg.MaxRetries,
		}, p.Executor(), holder, redis, log).WithObservability(obs)
		register(eaq.TaskType, handler.Handle)
	}

	{
		wcfg := config.GetWorkerConfig(cfg, air.TaskType)
		handler := air.NewHandler(&air.Config{
			Timeout:    config.GetDuration(wcfg.Timeout),
			MaxRetries: wcfg.MaxRetries,
		}, p, log)
		register(air.TaskType, handler.Handle)
	}

	// --- 2. Alerting Workers (1) ---
	{
		wcfg := config.GetWorkerConfig(cfg, pra.TaskType)
		var publisher aws.Publisher
		if cfg.Alerts.Enabled {
			snsClient, err := aws.NewSNSClient(ctx, cfg.Alerts.Region)
			if err != nil {
				zapLog.Fatal("failed to create SNS client", zap.Error(err))
			}
			publisher = snsClient
		}
		handler, err := pra.NewHandler(&pra.Config{
			Enabled:    cfg.Alerts.Enabled,
			TopicARN:   cfg.Alerts.TopicARN,
			Timeout:    config.GetDuration(wcfg.Timeout),
			MaxRetries: wcfg.MaxRetries,
		}, publisher, log)
		if err != nil {
			zapLog.Fatal("failed to create publish-risk-alert handler", zap.Error(err))
		}
		register(pra.TaskType, handler.Handle)
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	activities, err := registry.LoadRegistry(registryPath)
	if err != nil {
		zapLog.Warn("activity registry unavailable", zap.String("path", registryPath), zap.Error(err))
		activities = &registry.ActivityRegistry{}
	} else if missing := activities.Missing(taskTypes); len(missing) > 0 {
		zapLog.Warn("workers missing from activity registry", zap.Strings("taskTypes", missing))
	}

	// --- Idle session sweep ---
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Sweep()
				metrics.ActiveSessions.Set(float64(p.Sessions()))
			}
		}
	}()

	// --- Health & Metrics Server ---
	mux := http.DefaultServeMux
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !holder.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "loading",
				"time":   time.Now().Format(time.RFC3339),
			})
			return
		}
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "broker unreachable",
				"error":  err.Error(),
				"time":   time.Now().Format(time.RFC3339),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		info, err := p.Schema()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, info)
	})
	mux.HandleFunc("/workers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, activities)
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.App.HealthPort)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	stop()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// loadDataset reads the transaction table until it succeeds or retries run
// out. Workers answer DATASET_UNAVAILABLE until the holder is populated.
func loadDataset(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, holder *dataset.Holder, zapLog *zap.Logger, log logger.Logger) {
	loader := dataset.NewPostgresLoader(pg.DB, cfg.Dataset.Table, log)

	if ok, err := pg.HasTable(ctx, cfg.Dataset.Table); err == nil && !ok {
		stdErr := apperrors.NewDatasetLoadFailedError(fmt.Errorf("table %s does not exist", cfg.Dataset.Table))
		zapLog.Error("dataset table missing, analytics workers will report DATASET_UNAVAILABLE",
			zap.String("errorCode", string(stdErr.Code)),
			zap.String("details", stdErr.Details),
		)
		return
	}

	err := retryWithBackoff(func() error {
		loadCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Dataset.LoadTimeout))
		defer cancel()

		ds, err := loader.Load(loadCtx)
		if err != nil {
			return err
		}
		holder.Set(ds)
		metrics.DatasetRows.Set(float64(ds.Len()))
		zapLog.Info("Dataset loaded",
			zap.String("table", cfg.Dataset.Table),
			zap.Int("rows", ds.Len()),
			zap.String("fingerprint", ds.Fingerprint()),
		)
		return nil
	}, cfg.Dataset.LoadRetries, 2*time.Second, zapLog, "Dataset load")
	if err != nil {
		stdErr := apperrors.NewDatasetLoadFailedError(err)
		zapLog.Error("dataset load failed, analytics workers will report DATASET_UNAVAILABLE",
			zap.String("errorCode", string(stdErr.Code)),
			zap.String("details", stdErr.Details),
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
