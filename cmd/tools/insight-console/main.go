// cmd/tools/insight-console/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"insightx-workers/internal/analytics/pipeline"
	"insightx-workers/internal/common/config"
	"insightx-workers/internal/common/database"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/dataset"
	"insightx-workers/internal/dataset/datasettest"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (defaults to configs/config.yaml)")
		jsonOut    = flag.Bool("json", false, "Print the full answer as JSON instead of text")
		demo       = flag.Bool("demo", false, "Use the built-in sample transactions instead of PostgreSQL")
		logLevel   = flag.String("log-level", "warn", "Log level")
	)
	flag.Parse()

	zapLog := logger.New(*logLevel, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	holder := dataset.NewHolder(nil)
	analytics := config.AnalyticsConfig{}

	if *demo {
		holder.Set(datasettest.Fixture())
	} else {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			zapLog.Fatal("config load failed", zap.Error(err))
		}
		analytics = cfg.Analytics

		ds, err := loadFromPostgres(cfg, log)
		if err != nil {
			zapLog.Fatal("dataset load failed", zap.Error(err))
		}
		holder.Set(ds)
	}

	p := pipeline.New(pipeline.ConfigFrom(withDefaults(analytics)), holder, log)
	c := &console{
		pipeline:  p,
		sessionID: uuid.NewString(),
		jsonOut:   *jsonOut,
		out:       os.Stdout,
	}

	if err := c.run(os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func loadFromPostgres(cfg *config.Config, log logger.Logger) (*dataset.Dataset, error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Dataset.LoadTimeout))
	defer cancel()

	if err := pg.WaitReady(ctx, cfg.Dataset.LoadRetries, config.GetSeconds(1)); err != nil {
		return nil, err
	}
	return dataset.NewPostgresLoader(pg.DB, cfg.Dataset.Table, log).Load(ctx)
}

// withDefaults fills the settings config.Load would default when the
// console runs without a config file.
func withDefaults(a config.AnalyticsConfig) config.AnalyticsConfig {
	if a.HistorySize == 0 {
		a.HistorySize = 10
	}
	if a.FuzzyThreshold == 0 {
		a.FuzzyThreshold = 0.80
	}
	if a.ComparisonZThreshold == 0 {
		a.ComparisonZThreshold = 2.0
	}
	if a.AnomalyZThreshold == 0 {
		a.AnomalyZThreshold = 1.5
	}
	return a
}
