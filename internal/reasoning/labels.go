package reasoning

import "strings"

// Recommendation is the next action chosen for a support case.
type Recommendation string

const (
	ProcessRefund    Recommendation = "process_refund"
	OfferReplacement Recommendation = "offer_replacement"
	EscalateToAdmin  Recommendation = "escalate_to_admin"
	RequestEvidence  Recommendation = "request_evidence"
	ProvideSupport   Recommendation = "provide_support"

	// ManualReview and GatherInfo are produced by the decision layer before
	// the chain runs; the chain itself never emits them.
	ManualReview Recommendation = "manual_review"
	GatherInfo   Recommendation = "gather_info"
)

// ChainRecommendations lists every label the reasoning chain can return.
var ChainRecommendations = []Recommendation{
	ProcessRefund,
	OfferReplacement,
	EscalateToAdmin,
	RequestEvidence,
	ProvideSupport,
}

// IsChainRecommendation reports whether r is one of ChainRecommendations.
func IsChainRecommendation(r Recommendation) bool {
	for _, candidate := range ChainRecommendations {
		if r == candidate {
			return true
		}
	}
	return false
}

// Confidence grades how sure the chain is about its decision.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ExtractRecommendation maps free decision text onto a fixed label.
// Trigger phrases are checked in priority order; the first hit wins.
func ExtractRecommendation(text string) Recommendation {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "refund"):
		return ProcessRefund
	case strings.Contains(lower, "replacement"), strings.Contains(lower, "replace"):
		return OfferReplacement
	case strings.Contains(lower, "escalation"), strings.Contains(lower, "escalate"):
		return EscalateToAdmin
	case strings.Contains(lower, "photo"), strings.Contains(lower, "evidence"):
		return RequestEvidence
	default:
		return ProvideSupport
	}
}

// ExtractConfidence looks for a literal "high confidence" or "low confidence".
func ExtractConfidence(text string) Confidence {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "high confidence"):
		return ConfidenceHigh
	case strings.Contains(lower, "low confidence"):
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}
