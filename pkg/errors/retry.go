package errors

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/fumiya-kume/repaircoord/pkg/clock"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts         int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:         3,
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.1,
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func() error

// ShouldRetryFunc determines if an error should trigger a retry
type ShouldRetryFunc func(error) bool

// DefaultShouldRetry retries structured errors flagged as recoverable
func DefaultShouldRetry(err error) bool {
	return err != nil && IsRecoverable(err)
}

// LLMShouldRetry retries provider failures and timeouts
func LLMShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	return IsType(err, ErrorTypeLLM) || IsType(err, ErrorTypeTimeout)
}

// Retry executes a function with retry logic
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc, shouldRetry ShouldRetryFunc) error {
	return RetryWithClock(ctx, clock.NewRealClock(), config, fn, shouldRetry)
}

// RetryWithClock executes a function with retry logic using a custom clock
func RetryWithClock(ctx context.Context, clk clock.Clock, config RetryConfig, fn RetryableFunc, shouldRetry ShouldRetryFunc) error {
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	interval := config.InitialInterval

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(interval):
		}

		interval = nextInterval(interval, config)
	}

	errType := ErrorTypeUnknown
	if ce, ok := asCoordError(lastErr); ok {
		errType = ce.errorType
	}

	return NewError(errType).
		WithMessage("operation failed after maximum retry attempts").
		WithCause(lastErr).
		WithSeverity(SeverityHigh).
		WithContext("max_attempts", config.MaxAttempts).
		WithSuggestion("Check the underlying error cause").
		Build()
}

// nextInterval grows the interval exponentially, capped at MaxInterval, with jitter
func nextInterval(interval time.Duration, config RetryConfig) time.Duration {
	next := time.Duration(float64(interval) * config.Multiplier)
	if config.MaxInterval > 0 && next > config.MaxInterval {
		next = config.MaxInterval
	}

	maxJitter := int64(float64(next) * config.RandomizationFactor)
	if maxJitter > 0 {
		if j, err := rand.Int(rand.Reader, big.NewInt(maxJitter*2)); err == nil {
			next += time.Duration(j.Int64() - maxJitter)
		}
	}
	return next
}
