// internal/workers/alerting/publish-risk-alert/config.go
package publishriskalert

import (
	"errors"
	"time"
)

type Config struct {
	Enabled    bool
	TopicARN   string
	Timeout    time.Duration
	MaxRetries int // caps the per-code retry budget; zero keeps it
}

func LoadConfig() *Config {
	return &Config{
		Enabled:    false,
		Timeout:    10 * time.Second,
		MaxRetries: 3,
	}
}

func (c *Config) Validate() error {
	if c.Enabled && c.TopicARN == "" {
		return errors.New("topic ARN is required when alerts are enabled")
	}
	return nil
}
