package decision

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"support-assistant/backend/internal/policy"
	"support-assistant/backend/internal/reasoning"
	"support-assistant/backend/internal/store"
)

// Systems identify which layers produced a decision.
const (
	SystemBasic  = "basic"
	SystemRAG    = "RAG only"
	SystemRAGRAT = "RAG + RAT"
)

const (
	needInfoReasoning  = "Need more information (issue type and order details) to make policy decision"
	noPolicyReasoning  = "No applicable policies found in knowledge base"
	retrievedPolicyCap = 3
)

// Decision is the combined retrieval and reasoning outcome for one case.
type Decision struct {
	System            string                   `json:"system"`
	RetrievedPolicies []policy.ContextItem     `json:"retrieved_policies,omitempty"`
	ThinkingProcess   *reasoning.Trace         `json:"thinking_process,omitempty"`
	Recommendation    reasoning.Recommendation `json:"recommendation"`
	Reasoning         string                   `json:"reasoning"`
	Confidence        reasoning.Confidence     `json:"confidence,omitempty"`
}

// JSON renders the decision for storage on tickets and admin requests.
func (d Decision) JSON() string {
	payload, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return string(payload)
}

// Retriever looks up policy sections.
type Retriever interface {
	Query(query, issueType string, limit int) policy.Result
}

// Thinker runs the reasoning chain.
type Thinker interface {
	Think(ctx context.Context, policies []policy.ContextItem, s reasoning.Situation) reasoning.Result
}

// Maker combines a retriever and a reasoning chain.
type Maker struct {
	retriever Retriever
	thinker   Thinker
}

// NewMaker wires the aggregator.
func NewMaker(retriever Retriever, thinker Thinker) *Maker {
	return &Maker{retriever: retriever, thinker: thinker}
}

// Process decides how to resolve issueType for order. It never fails; missing
// inputs or policies yield the gather_info and manual_review outcomes.
func (m *Maker) Process(ctx context.Context, issueType string, order *store.Order, query string) Decision {
	issueType = strings.TrimSpace(issueType)
	if issueType == "" || order == nil {
		return Decision{
			System:         SystemBasic,
			Recommendation: reasoning.GatherInfo,
			Reasoning:      needInfoReasoning,
		}
	}

	result := m.retriever.Query(query, issueType, retrievedPolicyCap)
	if !result.Found || len(result.Context) == 0 {
		logrus.WithFields(logrus.Fields{"issue": issueType, "order": order.OrderID}).Info("no policy matched")
		return Decision{
			System:         SystemRAG,
			Recommendation: reasoning.ManualReview,
			Reasoning:      noPolicyReasoning,
			Confidence:     reasoning.ConfidenceLow,
		}
	}

	policies := result.Context
	if len(policies) > retrievedPolicyCap {
		policies = policies[:retrievedPolicyCap]
	}

	thought := m.thinker.Think(ctx, policies, reasoning.Situation{
		IssueType:    issueType,
		OrderID:      order.OrderID,
		OrderSummary: order.Summary(),
		Query:        query,
	})
	trace := thought.Trace

	logrus.WithFields(logrus.Fields{
		"issue":          issueType,
		"order":          order.OrderID,
		"policies":       len(policies),
		"recommendation": thought.Recommendation,
		"confidence":     thought.Confidence,
	}).Info("policy decision")

	return Decision{
		System:            SystemRAGRAT,
		RetrievedPolicies: policies,
		ThinkingProcess:   &trace,
		Recommendation:    thought.Recommendation,
		Reasoning:         thought.Reasoning,
		Confidence:        thought.Confidence,
	}
}
