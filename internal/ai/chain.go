package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

type generatorChain struct {
	primary  Generator
	fallback Generator
}

// WithFallback returns a generator that first tries the primary implementation and
// falls back to the provided generator when the primary is unavailable or produces
// an unusable response.
func WithFallback(primary, fallback Generator) Generator {
	if isNil(primary) {
		return fallback
	}
	if isNil(fallback) {
		return primary
	}
	return &generatorChain{primary: primary, fallback: fallback}
}

func (c *generatorChain) Enabled() bool {
	if c == nil {
		return false
	}
	return c.primary.Enabled() || c.fallback.Enabled()
}

func (c *generatorChain) Generate(ctx context.Context, req Request) (string, error) {
	if c == nil {
		return "", ErrDisabled
	}
	if c.primary.Enabled() {
		out, err := c.primary.Generate(ctx, req)
		if err == nil && strings.TrimSpace(out) != "" {
			return out, nil
		}
		if err != nil {
			logrus.WithError(err).Warn("primary generator failed, trying fallback")
		}
	}
	if c.fallback.Enabled() {
		return c.fallback.Generate(ctx, req)
	}
	return "", ErrDisabled
}

// isNil catches typed nil pointers stored in the interface.
func isNil(g Generator) bool {
	if g == nil {
		return true
	}
	switch v := g.(type) {
	case *Client:
		return v == nil
	case *GeminiClient:
		return v == nil
	}
	return false
}

// NewGenerator builds the OpenAI-compatible client with Gemini as fallback.
// Unconfigured providers are skipped; the returned close func releases the
// Gemini connection.
func NewGenerator(ctx context.Context, cfg Config, gemini GeminiConfig) (Generator, func(), error) {
	primary, err := NewClient(cfg)
	if err != nil && !errors.Is(err, ErrDisabled) {
		return nil, nil, fmt.Errorf("ai client: %w", err)
	}
	secondary, err := NewGeminiClient(ctx, gemini)
	if err != nil && !errors.Is(err, ErrDisabled) {
		return nil, nil, err
	}

	closeFn := func() {}
	if secondary != nil {
		closeFn = func() {
			if err := secondary.Close(); err != nil {
				logrus.WithError(err).Warn("close gemini client")
			}
		}
	}

	var first, second Generator
	if primary != nil {
		first = primary
	}
	if secondary != nil {
		second = secondary
	}
	gen := WithFallback(first, second)
	logrus.WithFields(logrus.Fields{
		"openai_compatible": primary != nil,
		"gemini":            secondary != nil,
	}).Info("text generation configured")
	return gen, closeFn, nil
}
