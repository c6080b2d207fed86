// internal/workers/analytics/execute-analytics-query/config.go
package executeanalyticsquery

import "time"

type Config struct {
	Timeout    time.Duration
	CacheTTL   time.Duration
	MaxRetries int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		CacheTTL:   10 * time.Minute,
		MaxRetries: 3,
	}
}
