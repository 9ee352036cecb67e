package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"support-assistant/backend/internal/store"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestSectionsListsEmbeddedCorpus(t *testing.T) {
	out := run(t, "sections", "--type", "refund_policy")
	assert.Contains(t, out, "refund_policy_0")
	assert.Contains(t, out, "sections")
	assert.NotContains(t, out, "terms_policy_0")
}

func TestSearchRanksSections(t *testing.T) {
	out := run(t, "search", "my", "item", "arrived", "damaged", "--issue", "damage", "--limit", "2")
	assert.Contains(t, out, "1. refund_policy")
	assert.NotContains(t, out, "\n3. ")
}

func TestSearchReportsNoMatch(t *testing.T) {
	out := run(t, "search", "zzqx")
	assert.Contains(t, out, "No specific policy found")
}

func TestDecideWithStoredOrder(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "support.db")
	db, err := store.Open(dbPath, true)
	require.NoError(t, err)
	require.NoError(t, db.SaveOrder(&store.Order{OrderID: "123456", ProductName: "Milk", Amount: 120, Status: "delivered"}))
	require.NoError(t, db.Close())

	out := run(t, "--db", dbPath, "decide", "--issue", "damage", "--order-id", "123456", "--query", "my milk packet arrived damaged")
	assert.Contains(t, out, "RAG + RAT")
	assert.Contains(t, out, "provide_support")
	assert.Contains(t, out, "refund_policy")
}

func TestDecideWithoutOrderGathersInfo(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "support.db")
	out := run(t, "--db", dbPath, "decide", "--issue", "damage")
	assert.Contains(t, out, "gather_info")
}

func TestHashToken(t *testing.T) {
	out := strings.TrimSpace(run(t, "hash-token", "s3cret"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(out), []byte("s3cret")))
}
