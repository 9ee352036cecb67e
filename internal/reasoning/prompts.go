package reasoning

import (
	"fmt"
	"strings"

	"support-assistant/backend/internal/policy"
)

func situationPrompt(s Situation) string {
	b := &strings.Builder{}
	b.WriteString("<rat_situation_analysis>\n")
	fmt.Fprintf(b, "ISSUE_TYPE: %s\n", s.IssueType)
	fmt.Fprintf(b, "ORDER_DATA: %s\n", s.OrderSummary)
	fmt.Fprintf(b, "USER_QUERY: %s\n\n", s.Query)
	b.WriteString("Think step by step about this situation:\n\n")
	b.WriteString("STEP 1 - ISSUE CLASSIFICATION: What exactly is the user's problem?\n")
	b.WriteString("STEP 2 - TIMING ANALYSIS: When did this issue occur? Is it within policy time limits?\n")
	b.WriteString("STEP 3 - EVIDENCE ANALYSIS: What evidence is available or needed?\n")
	b.WriteString("STEP 4 - ORDER CONTEXT: What are the order details and their relevance?\n")
	b.WriteString("STEP 5 - USER EXPECTATIONS: What does the user likely want as resolution?\n\n")
	b.WriteString("Provide clear analysis for each step.\n")
	b.WriteString("</rat_situation_analysis>\n")
	return b.String()
}

func policyPrompt(situation string, policies []policy.ContextItem) string {
	b := &strings.Builder{}
	b.WriteString("<rat_policy_reasoning>\n")
	fmt.Fprintf(b, "SITUATION_ANALYSIS: %s\n", situation)
	fmt.Fprintf(b, "APPLICABLE_POLICIES: %s\n\n", joinPolicies(policies))
	b.WriteString("Now think through the policies step by step:\n\n")
	b.WriteString("STEP 1 - POLICY APPLICABILITY: Which specific policies apply to this situation?\n")
	b.WriteString("STEP 2 - CONDITION CHECKING: Are all policy conditions met (time limits, evidence, etc.)?\n")
	b.WriteString("STEP 3 - EXCEPTION ANALYSIS: Are there any exceptions or edge cases?\n")
	b.WriteString("STEP 4 - PRECEDENCE RULES: If multiple policies apply, which takes priority?\n")
	b.WriteString("STEP 5 - COMPLIANCE STATUS: Is this case within policy or requires escalation?\n\n")
	b.WriteString("Think through each step systematically.\n")
	b.WriteString("</rat_policy_reasoning>\n")
	return b.String()
}

func decisionPrompt(situation, reasoning string) string {
	b := &strings.Builder{}
	b.WriteString("<rat_final_decision>\n")
	fmt.Fprintf(b, "SITUATION: %s\n", situation)
	fmt.Fprintf(b, "POLICY_REASONING: %s\n\n", reasoning)
	b.WriteString("Based on the analysis and reasoning, make a final decision:\n\n")
	b.WriteString("STEP 1 - DECISION: What should be done? (refund/replacement/escalation/etc.)\n")
	b.WriteString("STEP 2 - JUSTIFICATION: Why is this the right decision?\n")
	b.WriteString("STEP 3 - NEXT_ACTIONS: What specific actions need to be taken?\n")
	b.WriteString("STEP 4 - CONFIDENCE: How confident are we in this decision? (high/medium/low)\n")
	b.WriteString("STEP 5 - ALTERNATIVE_OPTIONS: What other options could be considered?\n\n")
	b.WriteString("Provide clear, actionable decision with reasoning.\n")
	b.WriteString("</rat_final_decision>\n")
	return b.String()
}

func joinPolicies(policies []policy.ContextItem) string {
	texts := make([]string, 0, len(policies))
	for _, p := range policies {
		texts = append(texts, p.Content)
	}
	return strings.Join(texts, "\n")
}
