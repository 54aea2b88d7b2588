package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://google.serper.dev/search"
	maxResults      = 3
)

// Client wraps the Serper web search API. It is used as an agent tool, so
// its failures are reported as readable text instead of errors: a broken
// search must only degrade an answer, never abort it.
type Client struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
}

func NewClient(apiKey string) *Client {
	return newClient(apiKey, defaultEndpoint, &http.Client{Timeout: 10 * time.Second})
}

func newClient(apiKey, endpoint string, httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		endpoint:   endpoint,
	}
}

// Search returns the top organic results as title/link/snippet lines, or a
// human-readable error description. It never returns an error value.
func (c *Client) Search(ctx context.Context, query string) string {
	summary, err := c.search(ctx, query)
	if err != nil {
		return fmt.Sprintf("Web search error: %v", err)
	}
	return summary
}

func (c *Client) search(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", fmt.Errorf("serper api key is not configured")
	}

	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return "", fmt.Errorf("marshal search request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build search request failed: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read search response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("search response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse search json failed: %w", err)
	}
	if len(parsed.Organic) == 0 {
		return "No results found.", nil
	}

	var b strings.Builder
	for i, r := range parsed.Organic {
		if i >= maxResults {
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s\n%s", r.Title, r.Link, r.Snippet)
	}
	return b.String(), nil
}
