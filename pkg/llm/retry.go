package llm

import (
	"context"

	"github.com/fumiya-kume/repaircoord/pkg/clock"
	"github.com/fumiya-kume/repaircoord/pkg/errors"
)

// RetryingClient retries provider failures and timeouts with exponential backoff
type RetryingClient struct {
	next   Client
	config errors.RetryConfig
	clock  clock.Clock
}

// NewRetryingClient wraps next
func NewRetryingClient(next Client, config errors.RetryConfig) *RetryingClient {
	return NewRetryingClientWithClock(next, config, clock.NewRealClock())
}

// NewRetryingClientWithClock wraps next using clk for backoff waits
func NewRetryingClientWithClock(next Client, config errors.RetryConfig, clk clock.Clock) *RetryingClient {
	return &RetryingClient{next: next, config: config, clock: clk}
}

func (c *RetryingClient) MakeRequest(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	var resp *Response
	err := errors.RetryWithClock(ctx, c.clock, c.config, func() error {
		r, err := c.next.MakeRequest(ctx, messages, opts)
		if err != nil {
			if !errors.IsType(err, errors.ErrorTypeLLM) && !errors.IsType(err, errors.ErrorTypeTimeout) &&
				!errors.IsType(err, errors.ErrorTypeValidation) {
				return errors.LLMError("completion", err)
			}
			return err
		}
		resp = r
		return nil
	}, errors.LLMShouldRetry)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
