package model

import "time"

// RetryConfig defines retry behavior for remote source fetches
type RetryConfig struct {
	MaxRetries      int           `json:"max_retries" yaml:"max_retries" envconfig:"MAX_RETRIES"`
	InitialDelay    time.Duration `json:"initial_delay" yaml:"initial_delay" envconfig:"INITIAL_DELAY"`
	MaxDelay        time.Duration `json:"max_delay" yaml:"max_delay" envconfig:"MAX_DELAY"`
	BackoffFactor   float64       `json:"backoff_factor" yaml:"backoff_factor" envconfig:"BACKOFF_FACTOR"`
	RetryableErrors []string      `json:"retryable_errors" yaml:"retryable_errors" envconfig:"RETRYABLE_ERRORS"`
}
