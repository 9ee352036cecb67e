package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiConfig configures the Google Gemini generator.
type GeminiConfig struct {
	APIKey string
	Model  string
}

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiClient implements Generator with the Gemini SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient dials Gemini. It returns ErrDisabled when no API key is set.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrDisabled
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Enabled reports whether the client was constructed.
func (g *GeminiClient) Enabled() bool {
	return g != nil && g.client != nil
}

// Generate runs a single non-streaming content generation.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}

	model := g.client.GenerativeModel(g.model)
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if system := strings.TrimSpace(req.System); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Close releases the underlying SDK client.
func (g *GeminiClient) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}
