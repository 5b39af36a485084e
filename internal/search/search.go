// Package search implements the web evidence adapter. It queries the
// DuckDuckGo Lite HTML endpoint and parses result rows out of the page.
// A strict fact-check flavored query runs first; the general query is the
// fallback when the strict one comes back empty.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"veritas/internal/logging"
)

// ErrUnavailable indicates the search backend could not be reached after
// all retries. Callers surface this as a status, never as a fault.
var ErrUnavailable = errors.New("search unavailable")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"body"`
	URL     string `json:"href"`
}

// Config configures the search client.
type Config struct {
	BaseURL    string
	MaxResults int
	MaxRetries int
	Timeout    time.Duration
	UserAgent  string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://lite.duckduckgo.com/lite/",
		MaxResults: 5,
		MaxRetries: 2,
		Timeout:    15 * time.Second,
		UserAgent:  defaultUserAgent,
	}
}

// Client queries the search backend. Safe for concurrent use.
type Client struct {
	baseURL    string
	maxResults int
	maxRetries int
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a search client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 5
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    config.BaseURL,
		maxResults: config.MaxResults,
		maxRetries: config.MaxRetries,
		userAgent:  config.UserAgent,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Search runs the strict query first and falls back to the general one
// when the strict query yields nothing. Returns ErrUnavailable when the
// backend cannot be reached at all.
func (c *Client) Search(ctx context.Context, claim string) ([]Result, error) {
	log := logging.Get(logging.CategorySearch)

	strict := claim + " fact check"
	results, err := c.queryWithRetry(ctx, strict)
	if err == nil && len(results) > 0 {
		return results, nil
	}
	if err != nil {
		log.Debugw("strict query failed", "query", strict, "err", err)
	}

	general, genErr := c.queryWithRetry(ctx, claim)
	if genErr != nil {
		// Both strategies down means the backend is unreachable.
		if err != nil {
			return nil, ErrUnavailable
		}
		return nil, genErr
	}
	return general, nil
}

// queryWithRetry executes one query with bounded retry and jittered backoff.
func (c *Client) queryWithRetry(ctx context.Context, query string) ([]Result, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffWithJitter(attempt)):
			}
		}

		results, err := c.query(ctx, query)
		if err == nil {
			return results, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
		logging.Get(logging.CategorySearch).Debugw("query attempt failed",
			"attempt", attempt+1, "max", c.maxRetries+1, "err", err)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) query(ctx context.Context, query string) ([]Result, error) {
	u := c.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	results, err := parseResults(string(body))
	if err != nil {
		return nil, err
	}
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	return results, nil
}

// parseResults extracts result rows from the Lite HTML page. Result links
// carry class "result-link"; the snippet lives in the next
// "result-snippet" cell.
func parseResults(page string) ([]Result, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var results []Result
	var current *Result

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if hasClass(n, "result-link") {
					if current != nil {
						results = append(results, *current)
					}
					current = &Result{
						Title: textContent(n),
						URL:   attr(n, "href"),
					}
				}
			case "td":
				if hasClass(n, "result-snippet") && current != nil {
					current.Snippet = textContent(n)
					results = append(results, *current)
					current = nil
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if current != nil {
		results = append(results, *current)
	}
	return results, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
