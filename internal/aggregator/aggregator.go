// Package aggregator turns open questions into a single short answer: it
// queries every text provider concurrently, puts trusted sources first,
// extracts the most central sentences and cites up to three hosts.
// Answers are cached per normalized query.
package aggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"jarvis/internal/logging"
	"jarvis/internal/search"
	"jarvis/internal/textnorm"
)

// NoResults is the reply when no provider returned anything.
const NoResults = "No encontré resultados claros ahora mismo."

// Config wires providers and limits into an Aggregator.
type Config struct {
	Providers []search.TextProvider
	Images    search.ImageProvider
	Trusted   search.TrustList

	ProviderTimeout time.Duration
	MaxResults      int
	// ResultLimit, when set, overrides MaxResults per call.
	ResultLimit      func() int
	SummarySentences int
	MaxSources       int
	MaxImages        int

	CacheTTL  time.Duration
	CacheSize int
	Now       func() time.Time
}

// Aggregator answers text and image queries.
type Aggregator struct {
	cfg   Config
	cache *Cache
	group singleflight.Group
}

// New creates an Aggregator, filling zero limits with defaults.
func New(cfg Config) *Aggregator {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 6
	}
	if cfg.SummarySentences <= 0 {
		cfg.SummarySentences = 3
	}
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = 3
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 4
	}
	return &Aggregator{
		cfg:   cfg,
		cache: NewCache(cfg.CacheSize, cfg.CacheTTL, cfg.Now),
	}
}

// CacheKey normalizes a query for cache lookup.
func CacheKey(query string) string {
	return textnorm.Lower(query)
}

// Answer returns the composed answer for query. Within the cache TTL a
// repeated query is served from the cache without provider calls, and
// concurrent identical queries share one set of provider calls.
func (a *Aggregator) Answer(ctx context.Context, query string) string {
	q := textnorm.Clean(query)
	if q == "" {
		return NoResults
	}
	key := CacheKey(q)

	if ans, ok := a.cache.Get(key); ok {
		logging.AggregatorDebug("cache hit for %q", key)
		return ans
	}

	v, _, _ := a.group.Do(key, func() (interface{}, error) {
		if ans, ok := a.cache.Get(key); ok {
			return ans, nil
		}
		ans := a.compose(ctx, q)
		a.cache.Set(key, ans)
		return ans, nil
	})
	return v.(string)
}

func (a *Aggregator) limit() int {
	if a.cfg.ResultLimit != nil {
		if n := a.cfg.ResultLimit(); n > 0 {
			return n
		}
	}
	return a.cfg.MaxResults
}

// Collect queries every provider concurrently. Outcomes are returned in
// provider order; a failed provider has no hits.
func (a *Aggregator) Collect(ctx context.Context, q string) []search.Outcome {
	limit := a.limit()
	outcomes := make([]search.Outcome, len(a.cfg.Providers))

	var g errgroup.Group
	for i, p := range a.cfg.Providers {
		g.Go(func() error {
			outcomes[i] = search.Query(ctx, p, q, limit, a.cfg.ProviderTimeout)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (a *Aggregator) compose(ctx context.Context, q string) string {
	timer := logging.StartTimer(logging.CategoryAggregator, "compose")
	defer timer.Stop()

	var hits []search.Hit
	failed := 0
	for _, o := range a.Collect(ctx, q) {
		if o.Err != nil {
			failed++
		}
		hits = append(hits, o.Hits...)
	}
	logging.Aggregator("query %q: %d hits from %d providers (%d failed)", q, len(hits), len(a.cfg.Providers), failed)

	if len(hits) == 0 {
		return NoResults
	}

	ordered := TrustedFirst(hits, a.cfg.Trusted)
	summary := Summarize(ordered, a.cfg.SummarySentences)
	sources := Citations(ordered, a.cfg.MaxSources)
	if len(summary) == 0 && len(sources) == 0 {
		return NoResults
	}

	var b strings.Builder
	b.WriteString("🔎 ")
	b.WriteString(q)
	for _, s := range summary {
		b.WriteString("\n• ")
		b.WriteString(s)
	}
	if len(sources) > 0 {
		b.WriteString("\nFuentes:")
		for _, h := range sources {
			title := textnorm.Clean(h.Title)
			if title == "" {
				title = search.Host(h.URL)
			}
			fmt.Fprintf(&b, "\n- %s: %s", title, h.URL)
		}
	}
	return b.String()
}

// Images lists up to MaxImages image URLs for topic. Image answers are
// never cached.
func (a *Aggregator) Images(ctx context.Context, topic string) string {
	topic = textnorm.Clean(topic)
	notFound := fmt.Sprintf("No encontré imágenes para %s.", topic)
	if topic == "" || a.cfg.Images == nil {
		return notFound
	}

	urls := a.searchImages(ctx, topic)
	if len(urls) == 0 {
		return notFound
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🖼️ Imágenes de %s:", topic)
	for _, u := range urls {
		b.WriteString("\n• ")
		b.WriteString(u)
	}
	return b.String()
}

func (a *Aggregator) searchImages(ctx context.Context, topic string) (urls []string) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ProviderTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logging.SearchWarn("%s panicked: %v", a.cfg.Images.Name(), r)
			urls = nil
		}
	}()

	found, err := a.cfg.Images.ImageSearch(ctx, topic, a.cfg.MaxImages)
	if err != nil {
		logging.SearchWarn("%s failed: %v", a.cfg.Images.Name(), err)
		return nil
	}
	if len(found) > a.cfg.MaxImages {
		found = found[:a.cfg.MaxImages]
	}
	return found
}

// CacheSize reports how many answers are cached.
func (a *Aggregator) CacheSize() int {
	return a.cache.Size()
}
