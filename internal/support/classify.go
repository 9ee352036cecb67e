package support

import (
	"regexp"
	"strings"
	"unicode"
)

// Query types produced by classification.
const (
	QueryInappropriate     = "inappropriate"
	QueryPriceSearch       = "price_search"
	QueryPriceSearchFailed = "price_search_failed"
	QuerySupport           = "support"
)

// Issue types detected from customer messages.
const (
	IssueDamage  = "damage"
	IssueMissing = "missing"
	IssueWrong   = "wrong"
)

var inappropriateKeywords = []string{
	"dating", "relationship", "girlfriend", "boyfriend", "marriage",
	"politics", "religion", "sports", "movies", "celebrity",
	"sex", "adult", "xxx", "porn",
	"coding", "programming", "software development",
	"how are you", "what's your name", "where do you live", "tell me joke",
}

var priceKeywords = []string{
	"price", "cost", "rate", "kitna hai", "how much", "kitne ka",
	"kitne mein", "price kya hai", "rate kya hai", "cost kitna",
}

var priceWords = map[string]struct{}{
	"price": {}, "cost": {}, "rate": {}, "kitna": {},
}

var issueKeywords = []struct {
	issue    string
	keywords []string
}{
	{IssueDamage, []string{"damage", "broken", "crack", "kharab"}},
	{IssueMissing, []string{"nahi mila", "not received", "nahi aaya", "missing"}},
	{IssueWrong, []string{"wrong", "galat", "different", "alag"}},
}

var hinglishMarkers = map[string]struct{}{
	"hai": {}, "hain": {}, "nahi": {}, "kya": {}, "mera": {}, "meri": {}, "mujhe": {},
	"kar": {}, "karo": {}, "hun": {}, "mila": {}, "aaya": {}, "kitna": {}, "kab": {},
	"aap": {}, "bhai": {}, "kharab": {}, "galat": {}, "alag": {}, "tha": {},
}

var orderIDPattern = regexp.MustCompile(`(\d{4,8})`)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// IsInappropriate reports whether text is off-topic for customer support.
func IsInappropriate(text string) bool {
	return containsAny(strings.ToLower(text), inappropriateKeywords)
}

// IsPriceQuestion reports whether text asks for a current price.
func IsPriceQuestion(text string) bool {
	return containsAny(strings.ToLower(text), priceKeywords)
}

// ExtractProductName returns the last two non-price words of a price question,
// or "product" when fewer than two remain.
func ExtractProductName(text string) string {
	lowered := strings.ReplaceAll(strings.ToLower(text), "how much", " ")
	var words []string
	for _, w := range strings.Fields(lowered) {
		if _, skip := priceWords[w]; skip {
			continue
		}
		words = append(words, w)
	}
	if len(words) < 2 {
		return "product"
	}
	return strings.Join(words[len(words)-2:], " ")
}

// ExtractOrderID returns the first run of 4 to 8 digits in text.
func ExtractOrderID(text string) (string, bool) {
	m := orderIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DetectIssueType returns damage, missing or wrong, or "" when none match.
func DetectIssueType(text string) string {
	lowered := strings.ToLower(text)
	for _, group := range issueKeywords {
		if containsAny(lowered, group.keywords) {
			return group.issue
		}
	}
	return ""
}

// DetectLanguage returns "hi" for Devanagari or common Hinglish, otherwise "en".
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return "hi"
		}
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if _, ok := hinglishMarkers[w]; ok {
			return "hi"
		}
	}
	return "en"
}
