package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumiya-kume/repaircoord/pkg/clock"
)

func TestErrorBuilder(t *testing.T) {
	err := NewError(ErrorTypeValidation).
		WithMessage("context is empty").
		WithSeverity(SeverityLow).
		WithContext("field", "contract").
		WithSuggestion("Provide at least one analyzable field").
		WithRecoverable(true).
		Build()

	ce, ok := err.(*coordError)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeValidation, ce.Type())
	assert.Equal(t, SeverityLow, ce.Severity())
	assert.True(t, ce.IsRecoverable())
	assert.Equal(t, []string{"Provide at least one analyzable field"}, ce.Suggestions())
	assert.Equal(t, "contract", ce.Context()["field"])
	assert.Equal(t, "[validation:low] context is empty", err.Error())
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := AgentExecutionError("emotional_analyzer", cause)

	assert.Equal(t, "[agent_execution:medium] agent emotional_analyzer failed caused by: connection reset", err.Error())
	assert.True(t, stderrors.Is(err, cause))
}

func TestConvenienceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		typ  ErrorType
	}{
		{"unavailable", AgentUnavailableError("progress_analyzer"), ErrorTypeAgentUnavailable},
		{"not found", CoordinationNotFoundError("c-42"), ErrorTypeCoordinationNotFound},
		{"fatal", FatalCoordinationError("validation", fmt.Errorf("bad")), ErrorTypeFatalCoordination},
		{"timeout", TimeoutError("analyze", time.Second), ErrorTypeTimeout},
		{"llm", LLMError("completion", fmt.Errorf("429")), ErrorTypeLLM},
		{"config", ConfigurationError("bad weight"), ErrorTypeConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsType(tt.err, tt.typ))
		})
	}

	assert.Equal(t, "c-42", GetContext(CoordinationNotFoundError("c-42"))["coordination_id"])
	assert.NotEmpty(t, GetSuggestions(AgentUnavailableError("x")))
	assert.Empty(t, GetSuggestions(fmt.Errorf("plain")))
}

func TestIsTypeFollowsWrapping(t *testing.T) {
	inner := AgentExecutionError("contract_analyzer", TimeoutError("analyze", time.Second))
	outer := fmt.Errorf("fan-out: %w", inner)

	assert.True(t, IsType(outer, ErrorTypeAgentExecution))
	assert.True(t, IsType(outer, ErrorTypeTimeout))
	assert.False(t, IsType(outer, ErrorTypeLLM))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeValidation))
}

func TestRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, InitialInterval: 0, Multiplier: 2}

	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return LLMError("completion", fmt.Errorf("503"))
		}
		return nil
	}, LLMShouldRetry)

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		attempts++
		return fmt.Errorf("plain failure")
	}, nil)

	assert.EqualError(t, err, "plain failure")
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustsWithFakeClock(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := RetryConfig{MaxAttempts: 2, InitialInterval: time.Second, Multiplier: 2}

	done := make(chan error, 1)
	go func() {
		done <- RetryWithClock(context.Background(), clk, cfg, func() error {
			return LLMError("completion", fmt.Errorf("overloaded"))
		}, LLMShouldRetry)
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case err := <-done:
			require.Error(t, err)
			assert.True(t, IsType(err, ErrorTypeLLM))
			assert.Contains(t, err.Error(), "maximum retry attempts")
			return
		case <-deadline:
			t.Fatal("retry did not finish")
		default:
			clk.Advance(time.Second)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryConfig(), func() error { return nil }, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
