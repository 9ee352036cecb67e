package mcptool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"support-assistant/backend/internal/decision"
	"support-assistant/backend/internal/policy"
	"support-assistant/backend/internal/store"
)

// MetadataSearchPolicies describes the search_policies tool.
var MetadataSearchPolicies = &mcp.Tool{
	Name: "search_policies",
	Description: "Search the customer support policy corpus. Sections are ranked by keyword and " +
		"substring relevance to the query and issue type; at most limit sections are returned.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Free-text customer question or issue description",
			},
			"issue_type": map[string]interface{}{
				"type":        "string",
				"description": "Issue category such as damage, missing or wrong",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum sections to return (default 3)",
			},
		},
	},
}

// InputSearchPolicies is the input for the SearchPolicies tool.
type InputSearchPolicies struct {
	Query     string `json:"query"`
	IssueType string `json:"issue_type"`
	Limit     int    `json:"limit"`
}

// MetadataDecidePolicy describes the decide_policy tool.
var MetadataDecidePolicy = &mcp.Tool{
	Name: "decide_policy",
	Description: "Produce a resolution recommendation for a support case by retrieving policies and " +
		"reasoning over them. Returns one of process_refund, offer_replacement, escalate_to_admin, " +
		"request_evidence, provide_support, manual_review or gather_info with a confidence level.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"issue_type", "order_id"},
		"properties": map[string]interface{}{
			"issue_type": map[string]interface{}{
				"type":        "string",
				"description": "Issue category such as damage, missing or wrong",
			},
			"order_id": map[string]interface{}{
				"type":        "string",
				"description": "Order identifier known to the support store",
			},
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Customer message or evidence summary",
			},
		},
	},
}

// InputDecidePolicy is the input for the DecidePolicy tool.
type InputDecidePolicy struct {
	IssueType string `json:"issue_type"`
	OrderID   string `json:"order_id"`
	Query     string `json:"query"`
}

// OrderLookup resolves order ids.
type OrderLookup interface {
	GetOrder(orderID string) (*store.Order, error)
}

// Tools exposes retrieval and decisions to MCP clients.
type Tools struct {
	engine  *policy.Engine
	decider *decision.Maker
	orders  OrderLookup
}

// New builds the tool set. orders may be nil, in which case decide_policy
// runs without order details.
func New(engine *policy.Engine, decider *decision.Maker, orders OrderLookup) *Tools {
	return &Tools{engine: engine, decider: decider, orders: orders}
}

// Register adds both tools to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, MetadataSearchPolicies, t.SearchPolicies)
	mcp.AddTool(server, MetadataDecidePolicy, t.DecidePolicy)
}

// SearchPolicies runs a policy query.
func (t *Tools) SearchPolicies(_ context.Context, _ *mcp.CallToolRequest, input InputSearchPolicies) (*mcp.CallToolResult, policy.Result, error) {
	if strings.TrimSpace(input.Query) == "" && strings.TrimSpace(input.IssueType) == "" {
		return nil, policy.Result{}, fmt.Errorf("query or issue_type is required")
	}
	return nil, t.engine.Query(input.Query, input.IssueType, input.Limit), nil
}

// DecidePolicy runs the decision pipeline for an order.
func (t *Tools) DecidePolicy(ctx context.Context, _ *mcp.CallToolRequest, input InputDecidePolicy) (*mcp.CallToolResult, decision.Decision, error) {
	var order *store.Order
	if id := strings.TrimSpace(input.OrderID); id != "" && t.orders != nil {
		found, err := t.orders.GetOrder(id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, decision.Decision{}, fmt.Errorf("order %s not found", id)
		case err != nil:
			return nil, decision.Decision{}, err
		}
		order = found
	}
	return nil, t.decider.Process(ctx, input.IssueType, order, input.Query), nil
}

// Serve runs an MCP server over stdio until ctx is done or the client disconnects.
func Serve(ctx context.Context, tools *Tools, version string) error {
	server := mcp.NewServer(&mcp.Implementation{Name: "policyctl", Version: version}, nil)
	tools.Register(server)
	return server.Run(ctx, &mcp.StdioTransport{})
}
