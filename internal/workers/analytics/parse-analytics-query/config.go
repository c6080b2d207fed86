// internal/workers/analytics/parse-analytics-query/config.go
package parseanalyticsquery

import "time"

type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    10 * time.Second,
		MaxRetries: 1,
	}
}
