package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Config drives Tavily client behaviour.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	// MaxResults is the number of search hits requested per query.
	MaxResults int
}

// PriceResult is what the support agent learns about a product's price.
type PriceResult struct {
	Found     bool   `json:"found"`
	PriceText string `json:"price_text,omitempty"`
	Error     string `json:"error,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// Client performs Tavily searches with a TTL cache keyed by query.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxResults int
	cacheTTL   time.Duration
	cache      sync.Map // map[string]cacheEntry
}

type cacheEntry struct {
	at     time.Time
	result PriceResult
}

// ErrMissingCredentials is returned when the client has no API key.
var ErrMissingCredentials = errors.New("tavily client missing api key")

// NotConfiguredMessage is reported when price search has no API key.
const NotConfiguredMessage = "Tavily API not configured"

const maxAnswerRunes = 200

var currencyMarkers = []string{"₹", "Rs", "INR", "rupees"}

// NewClient constructs a Tavily client. It returns ErrMissingCredentials
// alongside a usable client that reports the not-configured fallback.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.tavily.com/search"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	rows := cfg.MaxResults
	if rows <= 0 {
		rows = 5
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		maxResults: rows,
		cacheTTL:   ttl,
	}
	if client.apiKey == "" {
		return client, ErrMissingCredentials
	}
	return client, nil
}

// Enabled reports whether searches will reach the API.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// PriceQuery builds the search text for a product in a location.
func PriceQuery(product, location string) string {
	return fmt.Sprintf("%s price Swiggy Instamart %s current rate cost 2025", product, location)
}

// SearchPrice looks up the current price of product. Failures are reported
// inside the result with Fallback set; it never returns a Go error.
func (c *Client) SearchPrice(ctx context.Context, product, location string) PriceResult {
	if !c.Enabled() {
		return PriceResult{Error: NotConfiguredMessage, Fallback: true}
	}

	query := PriceQuery(product, location)
	key := strings.ToLower(strings.TrimSpace(query))
	if entry, ok := c.cache.Load(key); ok {
		cached := entry.(cacheEntry)
		if time.Since(cached.at) < c.cacheTTL {
			return cached.result
		}
		c.cache.Delete(key)
	}

	answer, err := c.performRequest(ctx, query)
	if err != nil {
		return PriceResult{Error: err.Error(), Fallback: true}
	}

	result := extractPrice(answer, product)
	c.cache.Store(key, cacheEntry{at: time.Now(), result: result})
	return result
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// statusError carries a non-200 response code.
type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("Search failed: %d", e.code)
}

func (c *Client) performRequest(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:        c.apiKey,
		Query:         query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
		MaxResults:    c.maxResults,
	})
	if err != nil {
		return "", fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError{code: resp.StatusCode}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	return payload.Answer, nil
}

func extractPrice(answer, product string) PriceResult {
	if answer != "" && containsCurrency(answer) {
		return PriceResult{Found: true, PriceText: truncate(answer)}
	}
	return PriceResult{Found: false, PriceText: fmt.Sprintf("Current price information for %s not available", product)}
}

func containsCurrency(text string) bool {
	for _, marker := range currencyMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxAnswerRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxAnswerRunes]) + "..."
}
