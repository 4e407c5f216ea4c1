package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider lets at most rpm completions start per minute, with
// bursts of up to rpm. One limiter is shared by the planner, the websocket
// chat and MCP tool calls of a process, so an instruction burst from several
// documents cannot exceed the provider's quota.
type RateLimitedProvider struct {
	provider Provider
	interval time.Duration
	burst    float64
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimitedProvider wraps provider with a limit of rpm requests per
// minute. A non-positive rpm returns the provider unwrapped.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	if rpm <= 0 {
		return provider
	}
	return &RateLimitedProvider{
		provider: provider,
		interval: time.Minute / time.Duration(rpm),
		burst:    float64(rpm),
		now:      time.Now,
		tokens:   float64(rpm),
		last:     time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// reserve takes a token if one is available and otherwise returns how long
// until the next one accrues.
func (r *RateLimitedProvider) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.tokens = min(r.burst, r.tokens+float64(now.Sub(r.last))/float64(r.interval))
	r.last = now

	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	return time.Duration((1 - r.tokens) * float64(r.interval))
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	for {
		d := r.reserve()
		if d <= 0 {
			return nil
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
