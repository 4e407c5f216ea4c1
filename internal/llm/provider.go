package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any content.
var ErrEmptyResponse = errors.New("empty completion")

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
