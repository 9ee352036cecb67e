package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"support-assistant/backend/internal/policy"
)

// Analyzer is the text-generation dependency of the chain.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Situation is the case under consideration.
type Situation struct {
	IssueType    string
	OrderID      string
	OrderSummary string
	Query        string
}

// StepStat records how a single chain step went.
type StepStat struct {
	Name      string `json:"name"`
	LatencyMs int64  `json:"latency_ms"`
	Degraded  bool   `json:"degraded"`
}

// Trace is the intermediate text of the three reasoning steps.
type Trace struct {
	SituationAnalysis string     `json:"situation_analysis"`
	PolicyReasoning   string     `json:"policy_reasoning"`
	FinalDecision     string     `json:"final_decision"`
	Steps             []StepStat `json:"steps,omitempty"`
}

// Result is the chain's output.
type Result struct {
	Trace          Trace          `json:"thinking_process"`
	Recommendation Recommendation `json:"recommendation"`
	Reasoning      string         `json:"reasoning"`
	Confidence     Confidence     `json:"confidence"`
}

const (
	situationMaxTokens = 600
	policyMaxTokens    = 700
	decisionMaxTokens  = 500
)

// DefaultDecisionReasoning is used when the final decision call fails.
const DefaultDecisionReasoning = "Standard resolution recommended based on policy guidelines"

var errNoAnalyzer = errors.New("reasoning analyzer not configured")

// Chain performs situation analysis, policy reasoning and a final decision as
// three sequential generation calls. A failed call is replaced by fixed text
// and the chain continues.
type Chain struct {
	analyzer Analyzer
}

// NewChain constructs a chain over analyzer. A nil analyzer makes every step degrade.
func NewChain(analyzer Analyzer) *Chain {
	return &Chain{analyzer: analyzer}
}

// Think runs the chain over the retrieved policies. It never returns an error.
func (c *Chain) Think(ctx context.Context, policies []policy.ContextItem, s Situation) Result {
	trace := Trace{}

	situation, stat := c.step(ctx, "situation_analysis", situationPrompt(s), situationMaxTokens)
	if stat.Degraded {
		situation = fmt.Sprintf("Basic situation analysis: %s issue with order %s", s.IssueType, orderIDOrUnknown(s.OrderID))
	}
	trace.SituationAnalysis = situation
	trace.Steps = append(trace.Steps, stat)

	reasoning, stat := c.step(ctx, "policy_reasoning", policyPrompt(situation, policies), policyMaxTokens)
	if stat.Degraded {
		policyType := "general"
		if len(policies) > 0 {
			policyType = policies[0].PolicyType
		}
		reasoning = fmt.Sprintf("Policy reasoning: Standard policies apply for %s cases", policyType)
	}
	trace.PolicyReasoning = reasoning
	trace.Steps = append(trace.Steps, stat)

	decision, stat := c.step(ctx, "final_decision", decisionPrompt(situation, reasoning), decisionMaxTokens)
	trace.Steps = append(trace.Steps, stat)
	if stat.Degraded {
		trace.FinalDecision = DefaultDecisionReasoning
		return Result{
			Trace:          trace,
			Recommendation: ProvideSupport,
			Reasoning:      DefaultDecisionReasoning,
			Confidence:     ConfidenceMedium,
		}
	}
	trace.FinalDecision = decision

	return Result{
		Trace:          trace,
		Recommendation: ExtractRecommendation(decision),
		Reasoning:      decision,
		Confidence:     ExtractConfidence(decision),
	}
}

func (c *Chain) step(ctx context.Context, name, prompt string, maxTokens int) (string, StepStat) {
	start := time.Now()
	stat := StepStat{Name: name}

	out, err := c.call(ctx, prompt, maxTokens)
	stat.LatencyMs = time.Since(start).Milliseconds()
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty analysis")
	}
	if err != nil {
		stat.Degraded = true
		logrus.WithError(err).WithFields(logrus.Fields{
			"step":       name,
			"latency_ms": stat.LatencyMs,
		}).Warn("reasoning step degraded")
		return "", stat
	}
	return out, stat
}

func (c *Chain) call(ctx context.Context, prompt string, maxTokens int) (out string, err error) {
	if c == nil || c.analyzer == nil {
		return "", errNoAnalyzer
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer panic: %v", r)
		}
	}()
	return c.analyzer.Analyze(ctx, prompt, maxTokens)
}

func orderIDOrUnknown(id string) string {
	if strings.TrimSpace(id) == "" {
		return "unknown"
	}
	return id
}
