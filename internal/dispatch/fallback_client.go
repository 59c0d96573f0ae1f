package dispatch

import (
	"context"
	"log/slog"

	"github.com/loodlijn/dispatch/pkg/logging"
)

// FallbackClient wraps a primary backend with a last-resort secondary. The
// secondary only runs after the primary fails; the secondary's errors are
// returned as-is so the caller sees the final failure.
type FallbackClient struct {
	primary   LLMClient
	secondary LLMClient
	logger    *logging.Logger
	onFall    func(primaryModel string)
}

func NewFallbackClient(primary, secondary LLMClient, logger *logging.Logger) *FallbackClient {
	if primary == nil {
		panic("dispatch: primary llm client cannot be nil")
	}
	if secondary == nil {
		panic("dispatch: secondary llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{primary: primary, secondary: secondary, logger: logger}
}

// OnFallback registers a hook invoked each time the secondary takes over,
// used for metrics.
func (c *FallbackClient) OnFallback(fn func(primaryModel string)) {
	c.onFall = fn
}

func (c *FallbackClient) ModelID() string { return c.primary.ModelID() }

func (c *FallbackClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		// The deadline is spent; the secondary would fail the same way.
		return LLMResponse{}, err
	}

	c.logger.Warn("primary backend failed, trying fallback",
		slog.String("primary_model", c.primary.ModelID()),
		slog.String("fallback_model", c.secondary.ModelID()),
		slog.String("error", err.Error()),
	)
	if c.onFall != nil {
		c.onFall(c.primary.ModelID())
	}
	return c.secondary.Complete(ctx, req)
}
