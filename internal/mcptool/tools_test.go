package mcptool

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-assistant/backend/internal/decision"
	"support-assistant/backend/internal/policy"
	"support-assistant/backend/internal/reasoning"
	"support-assistant/backend/internal/store"
)

func newTools(t *testing.T) (*Tools, *store.Database) {
	t.Helper()
	engine, err := policy.LoadEngine("")
	require.NoError(t, err)
	db, err := store.Open(filepath.Join(t.TempDir(), "mcp.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	maker := decision.NewMaker(engine, reasoning.NewChain(nil))
	return New(engine, maker, db), db
}

func TestSearchPolicies(t *testing.T) {
	tools, _ := newTools(t)
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	tests := []struct {
		name    string
		input   InputSearchPolicies
		wantErr bool
		found   bool
	}{
		{"empty input returns error", InputSearchPolicies{}, true, false},
		{"damage query matches", InputSearchPolicies{Query: "my cover arrived broken", IssueType: "damage", Limit: 2}, false, true},
		{"nonsense finds nothing", InputSearchPolicies{Query: "qqzzxx"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := tools.SearchPolicies(ctx, req, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.found, out.Found)
			if tt.input.Limit > 0 {
				assert.LessOrEqual(t, len(out.Context), tt.input.Limit)
			}
		})
	}
}

func TestDecidePolicy(t *testing.T) {
	tools, db := newTools(t)
	require.NoError(t, db.SaveOrder(&store.Order{OrderID: "24680", ProductName: "Phone Stand", Amount: 299}))
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	_, out, err := tools.DecidePolicy(ctx, req, InputDecidePolicy{IssueType: "damage", OrderID: "24680", Query: "stand is broken"})
	require.NoError(t, err)
	assert.Equal(t, decision.SystemRAGRAT, out.System)
	assert.Equal(t, reasoning.ProvideSupport, out.Recommendation)

	_, _, err = tools.DecidePolicy(ctx, req, InputDecidePolicy{IssueType: "damage", OrderID: "99999"})
	require.Error(t, err)

	_, out, err = tools.DecidePolicy(ctx, req, InputDecidePolicy{IssueType: "damage"})
	require.NoError(t, err)
	assert.Equal(t, reasoning.GatherInfo, out.Recommendation)
}
