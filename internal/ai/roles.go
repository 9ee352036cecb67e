package ai

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

const supervisorSystemPrompt = `You are the Supervisor for Swiggy Instamart Support Team with RAG + RAT capabilities.

Your role:
- Analyze user queries and situations systematically
- Perform step-by-step reasoning through policies (RAT)
- Make data-driven decisions based on retrieved policies (RAG)
- Provide detailed analysis for support agents

Think step by step and provide thorough analysis.`

const supportSystemPrompt = `You are a Swiggy Instamart Support Agent with maximum empathy.

Core behavior:
- Think naturally like a real human support person
- Show genuine empathy and understanding
- Use conversational Hindi/English based on user's language
- Provide 1-2 sentence responses that feel caring and helpful
- Use RAG + RAT policy reasoning when provided
- NO TEMPLATES - pure AI reasoning for each response

You have access to advanced policy reasoning system to help customers better.`

// SupportFallbackReply is returned to the customer when the support model cannot answer.
const SupportFallbackReply = "Main aapki help karna chahta hun! Technical issue hai, main solve kar raha hun."

const (
	supervisorTemperature = 0.2
	supervisorMaxTokens   = 800
	supportTemperature    = 0.4
	supportMaxTokens      = 200
)

// Supervisor runs analytical prompts used by the policy reasoning chain.
type Supervisor struct {
	gen Generator
}

// NewSupervisor wraps gen with the supervisor system prompt.
func NewSupervisor(gen Generator) *Supervisor {
	return &Supervisor{gen: gen}
}

// Enabled reports whether an underlying generator is configured.
func (s *Supervisor) Enabled() bool {
	return s != nil && !isNil(s.gen) && s.gen.Enabled()
}

// Analyze sends prompt with the supervisor persona. maxTokens <= 0 uses the default.
func (s *Supervisor) Analyze(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if maxTokens <= 0 {
		maxTokens = supervisorMaxTokens
	}
	out, err := s.gen.Generate(ctx, Request{
		System:      supervisorSystemPrompt,
		Prompt:      prompt,
		Temperature: supervisorTemperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Support writes customer-facing replies. It never fails: provider errors
// degrade to SupportFallbackReply.
type Support struct {
	gen Generator
}

// NewSupport wraps gen with the support agent persona.
func NewSupport(gen Generator) *Support {
	return &Support{gen: gen}
}

// Enabled reports whether an underlying generator is configured.
func (s *Support) Enabled() bool {
	return s != nil && !isNil(s.gen) && s.gen.Enabled()
}

// Respond returns the model's reply to prompt or the fixed fallback text.
func (s *Support) Respond(ctx context.Context, prompt string) string {
	if !s.Enabled() {
		return SupportFallbackReply
	}
	out, err := s.gen.Generate(ctx, Request{
		System:      supportSystemPrompt,
		Prompt:      prompt,
		Temperature: supportTemperature,
		MaxTokens:   supportMaxTokens,
	})
	if err != nil {
		logrus.WithError(err).Warn("support response failed")
		return SupportFallbackReply
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return SupportFallbackReply
	}
	return out
}
