package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"jarvis/internal/logging"
	"jarvis/internal/textnorm"
)

// Wikipedia resolves a query to the best-matching article through the
// opensearch API and returns its REST summary as a single hit. Languages
// are tried in order until one yields an article.
type Wikipedia struct {
	Client
	Langs []string
	// Endpoint maps a language code to the wiki base URL.
	Endpoint func(lang string) string
	// Sentences caps the summary extract; zero keeps two.
	Sentences int
}

func (w *Wikipedia) Name() string { return "wikipedia" }

func (w *Wikipedia) endpoint(lang string) string {
	if w.Endpoint != nil {
		return strings.TrimRight(w.Endpoint(lang), "/")
	}
	return "https://" + lang + ".wikipedia.org"
}

// TextSearch implements TextProvider. At most one hit is returned.
func (w *Wikipedia) TextSearch(ctx context.Context, query string, _ int) ([]Hit, error) {
	langs := w.Langs
	if len(langs) == 0 {
		langs = []string{"es", "en"}
	}

	var lastErr error
	for _, lang := range langs {
		hit, err := w.lookup(ctx, lang, query)
		if err != nil {
			lastErr = err
			logging.SearchDebug("wikipedia %s lookup failed: %v", lang, err)
			continue
		}
		if hit != nil {
			return []Hit{*hit}, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

func (w *Wikipedia) lookup(ctx context.Context, lang, query string) (*Hit, error) {
	base := w.endpoint(lang)
	params := url.Values{
		"action":    {"opensearch"},
		"search":    {query},
		"limit":     {"1"},
		"namespace": {"0"},
		"format":    {"json"},
	}
	body, err := w.get(ctx, base+"/w/api.php?"+params.Encode(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("opensearch: %w", err)
	}

	// [query, [titles], [descriptions], [urls]]
	title := gjson.GetBytes(body, "1.0").String()
	if title == "" {
		return nil, nil
	}
	pageURL := gjson.GetBytes(body, "3.0").String()

	summaryURL := base + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	body, err = w.get(ctx, summaryURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	summary := gjson.ParseBytes(body)
	extract := textnorm.Clean(summary.Get("extract").String())
	if extract == "" {
		return nil, nil
	}
	if u := summary.Get("content_urls.desktop.page").String(); u != "" {
		pageURL = u
	}
	if t := summary.Get("title").String(); t != "" {
		title = t
	}

	n := w.Sentences
	if n <= 0 {
		n = 2
	}
	sentences := textnorm.Sentences(extract)
	if len(sentences) > n {
		sentences = sentences[:n]
	}

	return &Hit{
		Title:   title + " (Wikipedia)",
		URL:     pageURL,
		Snippet: strings.Join(sentences, " "),
	}, nil
}
