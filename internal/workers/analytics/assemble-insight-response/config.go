// internal/workers/analytics/assemble-insight-response/config.go
package assembleinsightresponse

import "time"

type Config struct {
	Timeout       time.Duration
	// IncludeResult attaches the full AnalyticsResult to the response variable.
	IncludeResult bool
	MaxRetries    int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       5 * time.Second,
		IncludeResult: false,
		MaxRetries:    1,
	}
}
