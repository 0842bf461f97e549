package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// DuckDuckGo searches the DuckDuckGo HTML endpoint, which needs no API key.
type DuckDuckGo struct {
	Client
	BaseURL string // defaults to https://html.duckduckgo.com/html/
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// TextSearch implements TextProvider.
func (d *DuckDuckGo) TextSearch(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	base := d.BaseURL
	if base == "" {
		base = "https://html.duckduckgo.com/html/"
	}
	searchURL := fmt.Sprintf("%s?q=%s", base, url.QueryEscape(query))

	body, err := d.get(ctx, searchURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	return parseDuckDuckGoResults(string(body), maxResults)
}

// parseDuckDuckGoResults extracts search results from DuckDuckGo HTML.
func parseDuckDuckGoResults(htmlContent string, maxResults int) ([]Hit, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []Hit

	// Each result lives in a div with class "result results_links..."
	var findResults func(*html.Node)
	findResults = func(n *html.Node) {
		if maxResults > 0 && len(results) >= maxResults {
			return
		}

		if n.Type == html.ElementNode && n.Data == "div" {
			class := attrValue(n, "class")
			if strings.Contains(class, "result") && strings.Contains(class, "results_links") {
				hit := extractHit(n)
				if hit.URL != "" && hit.Title != "" {
					results = append(results, hit)
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findResults(c)
		}
	}

	findResults(doc)
	return results, nil
}

// extractHit extracts a single result from a result div.
func extractHit(n *html.Node) Hit {
	var hit Hit

	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "div") {
			class := attrValue(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				hit.URL = attrValue(n, "href")
				hit.Title = textContent(n)
			case strings.Contains(class, "result__snippet"):
				hit.Snippet = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)

	hit.URL = unwrapRedirect(hit.URL)
	return hit
}

// unwrapRedirect turns "//duckduckgo.com/l/?uddg=<target>&rut=..." into <target>.
func unwrapRedirect(raw string) string {
	if !strings.Contains(raw, "duckduckgo.com/l/?") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return raw
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// textContent returns all text within a node, whitespace-collapsed.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
