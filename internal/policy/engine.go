package policy

import (
	"sort"
	"strings"
)

const (
	querySubstringWeight = 10
	keywordWeight        = 5
	issueKeywordWeight   = 15
	issueSubstringWeight = 10
)

// Engine scores the immutable section corpus against user queries.
type Engine struct {
	sections []Section
	lowered  []string
}

// NewEngine builds an engine over the supplied sections. The slice is copied.
func NewEngine(sections []Section) *Engine {
	copied := make([]Section, len(sections))
	copy(copied, sections)
	lowered := make([]string, len(copied))
	for i, s := range copied {
		lowered[i] = strings.ToLower(s.Content)
	}
	return &Engine{sections: copied, lowered: lowered}
}

// Sections returns a copy of the loaded corpus.
func (e *Engine) Sections() []Section {
	if e == nil {
		return nil
	}
	out := make([]Section, len(e.sections))
	copy(out, e.sections)
	return out
}

// Len reports the number of loaded sections.
func (e *Engine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.sections)
}

// Score computes the relevance of every section with a positive score,
// ordered by descending score. Ties keep corpus order. The query is matched
// case-insensitively; issueType is matched exactly as given. An empty query
// is a substring of every section.
func (e *Engine) Score(query, issueType string) []ScoredSection {
	if e == nil {
		return nil
	}
	q := strings.ToLower(query)

	var scored []ScoredSection
	for i, section := range e.sections {
		score := scoreSection(section, e.lowered[i], q, issueType)
		if score > 0 {
			scored = append(scored, ScoredSection{Section: section, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Query returns the top limit sections for query and the optional issue type.
func (e *Engine) Query(query, issueType string, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	scored := e.Score(query, issueType)
	if len(scored) == 0 {
		return Result{Found: false, Context: []ContextItem{}, Message: NotFoundMessage}
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	items := make([]ContextItem, 0, len(scored))
	for _, s := range scored {
		items = append(items, ContextItem{
			ID:             s.Section.ID,
			Content:        s.Section.Content,
			PolicyType:     s.Section.PolicyType,
			RelevanceScore: s.Score,
		})
	}

	processed := issueType
	if processed == "" {
		processed = "general"
	}
	return Result{
		Found:          true,
		Context:        items,
		QueryProcessed: "rag_search_" + processed,
	}
}

func scoreSection(section Section, lowered, query, issue string) int {
	score := 0
	if strings.Contains(lowered, query) {
		score += querySubstringWeight
	}
	for _, kw := range section.Keywords {
		if kw != "" && strings.Contains(query, kw) {
			score += keywordWeight
		}
	}
	if issue != "" {
		for _, kw := range section.Keywords {
			if kw == issue {
				score += issueKeywordWeight
				break
			}
		}
		if strings.Contains(lowered, issue) {
			score += issueSubstringWeight
		}
	}
	return score
}
