package ai

import (
	"context"
	"errors"
)

// Generator produces text completions for a prompt.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is a single system + user prompt exchange.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

var (
	// ErrDisabled is returned when a generator has no credentials configured.
	ErrDisabled = errors.New("ai generator disabled")
	// ErrEmptyResponse is returned when the provider answers without any text.
	ErrEmptyResponse = errors.New("ai empty response")
)
