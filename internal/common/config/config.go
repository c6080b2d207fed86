// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Dataset   DatasetConfig           `mapstructure:"dataset"`
	Analytics AnalyticsConfig         `mapstructure:"analytics"`
	Alerts    AlertsConfig            `mapstructure:"alerts"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HealthPort  int    `mapstructure:"health_port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // caps error-code retry budgets
}

// --- Analytics Configuration ---

// DatasetConfig locates the transaction table loaded at startup.
type DatasetConfig struct {
	Table       string `mapstructure:"table"`
	LoadTimeout int    `mapstructure:"load_timeout"` // milliseconds
	LoadRetries int    `mapstructure:"load_retries"`
}

// AnalyticsConfig tunes the parser, memory and executor.
type AnalyticsConfig struct {
	HistorySize          int     `mapstructure:"history_size"`
	ContextTurns         int     `mapstructure:"context_turns"`
	FuzzyMatching        bool    `mapstructure:"fuzzy_matching"`
	FuzzyThreshold       float64 `mapstructure:"fuzzy_threshold"`
	ComparisonZThreshold float64 `mapstructure:"comparison_z_threshold"`
	AnomalyZThreshold    float64 `mapstructure:"anomaly_z_threshold"`
	CacheTTL             int     `mapstructure:"cache_ttl"`        // seconds
	SessionIdleTTL       int     `mapstructure:"session_idle_ttl"` // seconds
}

// AlertsConfig controls the publish-risk-alert worker.
type AlertsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
