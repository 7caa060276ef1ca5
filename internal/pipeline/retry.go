package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"vcmarket/internal/model"
)

// DefaultRetryConfig is used for remote sources when none is configured
var DefaultRetryConfig = model.RetryConfig{
	MaxRetries:      3,
	InitialDelay:    500 * time.Millisecond,
	MaxDelay:        10 * time.Second,
	BackoffFactor:   2.0,
	RetryableErrors: []string{"timeout", "connection refused", "connection reset", "temporary failure", "EOF", "status 5"},
}

// RetryManager retries fetch operations with exponential backoff
type RetryManager struct {
	config model.RetryConfig
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryManager creates a new retry manager. Zero fields of cfg fall back
// to DefaultRetryConfig.
func NewRetryManager(cfg model.RetryConfig, logger *zap.Logger) *RetryManager {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = DefaultRetryConfig.BackoffFactor
	}
	if len(cfg.RetryableErrors) == 0 {
		cfg.RetryableErrors = DefaultRetryConfig.RetryableErrors
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryManager{config: cfg, logger: logger, sleep: sleepContext}
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// retry budget is spent.
func (rm *RetryManager) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= rm.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := rm.calculateDelay(attempt)
			rm.logger.Warn("retrying operation",
				zap.String("operation", name),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(err))
			if serr := rm.sleep(ctx, delay); serr != nil {
				return fmt.Errorf("%s: %w", name, serr)
			}
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if !rm.isRetryableError(err) {
			return err
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, rm.config.MaxRetries+1, err)
}

// calculateDelay returns the backoff before the given attempt (1-based retry).
func (rm *RetryManager) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(rm.config.InitialDelay) * math.Pow(rm.config.BackoffFactor, float64(attempt-1)))
	if delay > rm.config.MaxDelay || delay <= 0 {
		delay = rm.config.MaxDelay
	}
	return delay
}

// isRetryableError matches err against the configured substrings. Context
// cancellation and user errors never retry.
func (rm *RetryManager) isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || IsUserError(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, retryable := range rm.config.RetryableErrors {
		if strings.Contains(msg, strings.ToLower(retryable)) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
