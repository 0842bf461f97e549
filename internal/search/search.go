// Package search contains the external search providers used by the answer
// aggregator. Every provider call is reduced to an Outcome so a failing
// provider simply contributes no hits.
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

	"jarvis/internal/logging"
)

// Hit is a single text search result.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// TextProvider returns (title, url, snippet) triples for a query.
type TextProvider interface {
	Name() string
	TextSearch(ctx context.Context, query string, maxResults int) ([]Hit, error)
}

// ImageProvider returns image URLs for a query.
type ImageProvider interface {
	Name() string
	ImageSearch(ctx context.Context, query string, maxResults int) ([]string, error)
}

// Outcome is the result-or-empty answer of one provider call.
type Outcome struct {
	Provider string
	Hits     []Hit
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the provider answered with at least one hit.
func (o Outcome) OK() bool {
	return o.Err == nil && len(o.Hits) > 0
}

// ErrStatus is wrapped when a provider answers with a non-200 status.
var ErrStatus = errors.New("unexpected HTTP status")

// Query runs one provider with its own timeout and converts any failure,
// including a panic inside the provider, into an Outcome.
func Query(ctx context.Context, p TextProvider, query string, maxResults int, timeout time.Duration) (out Outcome) {
	out.Provider = p.Name()
	start := time.Now()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			out.Hits = nil
			out.Err = fmt.Errorf("provider %s panicked: %v", out.Provider, r)
		}
		out.Elapsed = time.Since(start)
		if out.Err != nil {
			logging.SearchWarn("%s failed after %v: %v", out.Provider, out.Elapsed, out.Err)
		} else {
			logging.SearchDebug("%s returned %d hits in %v", out.Provider, len(out.Hits), out.Elapsed)
		}
	}()

	hits, err := p.TextSearch(ctx, query, maxResults)
	if err != nil {
		return Outcome{Provider: out.Provider, Err: err}
	}
	out.Hits = hits
	return out
}

// Client is the shared HTTP plumbing of the providers.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// DefaultUserAgent mimics a desktop browser; DuckDuckGo rejects bare clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

func (c Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// get fetches rawURL and returns at most 1MB of body.
func (c Client) get(ctx context.Context, rawURL string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9,en;q=0.5")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// Host returns the lower-cased host of rawURL without a "www." prefix, or
// "" when rawURL does not parse.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// TrustList matches hosts against an allow-list of domains. A host is
// trusted when it contains one of the domains.
type TrustList []string

// Trusted reports whether rawURL's host is on the list.
func (t TrustList) Trusted(rawURL string) bool {
	host := Host(rawURL)
	if host == "" {
		return false
	}
	for _, d := range t {
		if d != "" && strings.Contains(host, strings.ToLower(d)) {
			return true
		}
	}
	return false
}
