package research

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	braveDefaultBaseURL = "https://api.search.brave.com"
	braveSearchPath     = "/res/v1/web/search"
	braveDefaultTimeout = 15 * time.Second
)

// Searcher runs one web search for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// BraveSearcher queries the Brave Web Search API.
type BraveSearcher struct {
	apiKey  string
	baseURL string
	count   int
	client  *http.Client
}

// BraveOption configures a BraveSearcher.
type BraveOption func(*BraveSearcher)

// WithBraveBaseURL points the searcher at a different host (tests, proxies).
func WithBraveBaseURL(u string) BraveOption {
	return func(s *BraveSearcher) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithBraveClient sets the HTTP client.
func WithBraveClient(c *http.Client) BraveOption {
	return func(s *BraveSearcher) { s.client = c }
}

// WithBraveCount sets the number of results requested; 0 keeps the API default.
func WithBraveCount(n int) BraveOption {
	return func(s *BraveSearcher) { s.count = n }
}

// NewBraveSearcher creates a searcher. An empty apiKey is accepted here and
// reported as ErrMissingCredential on the first Search.
func NewBraveSearcher(apiKey string, opts ...BraveOption) *BraveSearcher {
	s := &BraveSearcher{
		apiKey:  apiKey,
		baseURL: braveDefaultBaseURL,
		client:  &http.Client{Timeout: braveDefaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type braveResponse struct {
	Query struct {
		Original string `json:"original"`
	} `json:"query"`
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
		} `json:"results"`
	} `json:"web"`
}

func (s *BraveSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	if s.apiKey == "" {
		return nil, &SearchUnavailableError{Err: fmt.Errorf("brave: %w: set BRAVE_API_KEY", ErrMissingCredential)}
	}

	q := url.Values{}
	q.Set("q", query)
	if s.count > 0 {
		q.Set("count", strconv.Itoa(s.count))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+braveSearchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, &SearchUnavailableError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, &SearchUnavailableError{
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("brave api error: %s", strings.TrimSpace(string(body))),
		}
	}

	var payload braveResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, &SearchUnavailableError{Err: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]Result, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, Result{
			Title:       plainText(r.Title),
			Description: plainText(r.Description),
			URL:         r.URL,
		})
	}
	return results, nil
}

// plainText strips the inline markup Brave adds to snippets (<strong> and
// HTML entities).
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
