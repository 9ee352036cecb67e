package support

import (
	"encoding/json"
	"fmt"
	"strings"

	"support-assistant/backend/internal/decision"
	"support-assistant/backend/internal/store"
)

// Classification is the outcome of inspecting one customer message.
type Classification struct {
	Type        string `json:"type"`
	ProductName string `json:"product_name,omitempty"`
	PriceInfo   string `json:"price_info,omitempty"`
	Context     string `json:"context,omitempty"`
}

const responseRules = `You are a Swiggy Support Agent. Think naturally about this situation:

RESPONSE RULES:
- Maximum 1-2 sentences only
- Use same language as user (Hindi for Hindi, English for English)
- Think what a real support person would say
- Don't use templates, think naturally
- If RAG + RAT policy reasoning is provided, use it to inform your response

SPECIFIC GUIDANCE:
- For inappropriate questions: Politely redirect to support topics in user's language
- For price questions: Share the price info naturally and ask if they want to order
- For support questions with policy reasoning: Use the RAG + RAT recommendation
- If you need order ID to help, ask for it first - don't claim to check without it

Think and respond naturally in 1-2 sentences based on the context.`

type promptState struct {
	CurrentOrder  *store.Order `json:"current_order"`
	IssueType     string       `json:"issue_type"`
	CurrentTicket string       `json:"current_ticket"`
}

type promptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// replyPrompt assembles the context block and response rules for the support model.
func replyPrompt(query string, c Classification, sess *Session, d *decision.Decision) string {
	history := make([]promptMessage, 0, 2)
	for _, m := range sess.recent(2) {
		history = append(history, promptMessage{Role: m.Role, Content: m.Content})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "USER_QUERY: %q\n", query)
	fmt.Fprintf(&b, "QUERY_TYPE: %s\n", c.Type)
	fmt.Fprintf(&b, "CONVERSATION_HISTORY: %s\n", compactJSON(history))
	fmt.Fprintf(&b, "SESSION_STATE: %s\n", compactJSON(promptState{
		CurrentOrder:  sess.CurrentOrder,
		IssueType:     sess.IssueType,
		CurrentTicket: sess.CurrentTicket,
	}))

	switch c.Type {
	case QuerySupport:
		if d != nil {
			payload, _ := json.MarshalIndent(d, "", "  ")
			fmt.Fprintf(&b, "\nRAG_RAT_POLICY_REASONING: %s\n", payload)
		}
	case QueryInappropriate:
		fmt.Fprintf(&b, "\nCONTEXT: %s\n", c.Context)
	case QueryPriceSearch:
		fmt.Fprintf(&b, "\nPRICE_INFO: %s\nPRODUCT: %s\n", c.PriceInfo, c.ProductName)
	case QueryPriceSearchFailed:
		fmt.Fprintf(&b, "\nPRODUCT: %s (price search failed)\n", c.ProductName)
	}

	b.WriteString("\n")
	b.WriteString(responseRules)
	return b.String()
}

func compactJSON(v any) string {
	payload, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(payload)
}
