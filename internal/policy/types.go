package policy

// Section is one chunk of policy text produced by splitting a policy file.
type Section struct {
	ID         string   `json:"id" yaml:"id"`
	PolicyType string   `json:"policy_type" yaml:"policy_type"`
	Content    string   `json:"content" yaml:"content"`
	Keywords   []string `json:"keywords" yaml:"keywords"`
}

// ScoredSection pairs a section with its relevance score for a single query.
type ScoredSection struct {
	Section Section
	Score   int
}

// ContextItem is the retrieval output handed to the reasoning chain and API clients.
type ContextItem struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	PolicyType     string `json:"policy_type"`
	RelevanceScore int    `json:"relevance_score"`
}

// Result is the outcome of a policy query. Found is false when no section
// scored above zero; callers treat that as "no applicable policy".
type Result struct {
	Found          bool          `json:"found"`
	Context        []ContextItem `json:"context"`
	QueryProcessed string        `json:"query_processed,omitempty"`
	Message        string        `json:"message,omitempty"`
}

// DefaultLimit is the number of sections returned when the caller passes no limit.
const DefaultLimit = 3

// NotFoundMessage accompanies results with no matching section.
const NotFoundMessage = "No specific policy found"
