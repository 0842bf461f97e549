package aggregator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"jarvis/internal/search"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingProvider struct {
	name  string
	hits  []search.Hit
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) TextSearch(ctx context.Context, _ string, _ int) ([]search.Hit, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return p.hits, p.err
}

type imageStub struct {
	urls  []string
	err   error
	calls atomic.Int32
}

func (s *imageStub) Name() string { return "images" }

func (s *imageStub) ImageSearch(context.Context, string, int) ([]string, error) {
	s.calls.Add(1)
	return s.urls, s.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var trusted = search.TrustList{"wikipedia.org", "nasa.gov"}

func marsHits() []search.Hit {
	return []search.Hit{
		{Title: "Blog de Marte", URL: "https://blog.example.com/marte", Snippet: "Marte es conocido como el planeta rojo por su color. Visita mi blog."},
		{Title: "Marte - Wikipedia", URL: "https://es.wikipedia.org/wiki/Marte", Snippet: "Marte es el cuarto planeta del sistema solar desde el Sol. Marte es conocido como el planeta rojo por su color."},
		{Title: "Otra entrada", URL: "https://blog.example.com/otra", Snippet: ""},
		{Title: "NASA Mars", URL: "https://www.nasa.gov/mars", Snippet: "El planeta rojo tiene dos lunas pequeñas llamadas Fobos y Deimos."},
	}
}

func newTestAggregator(c *clock, providers ...search.TextProvider) *Aggregator {
	return New(Config{
		Providers:       providers,
		Trusted:         trusted,
		ProviderTimeout: time.Second,
		CacheTTL:        5 * time.Minute,
		Now:             c.Now,
	})
}

func TestAnswerIsCachedWithinTTL(t *testing.T) {
	c := &clock{now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
	p := &countingProvider{name: "ddg", hits: marsHits()}
	agg := newTestAggregator(c, p)

	first := agg.Answer(context.Background(), "¿Qué es Marte?")
	c.Advance(4 * time.Minute)
	second := agg.Answer(context.Background(), "  ¿qué  es marte? ")

	assert.Equal(t, int32(1), p.calls.Load(), "second call must be served from cache")
	assert.Equal(t, first, second)

	c.Advance(2 * time.Minute)
	agg.Answer(context.Background(), "¿Qué es Marte?")
	assert.Equal(t, int32(2), p.calls.Load(), "expired entry must be recomputed")
}

func TestNoResultsIsCached(t *testing.T) {
	c := &clock{now: time.Now()}
	empty := &countingProvider{name: "empty"}
	failing := &countingProvider{name: "down", err: errors.New("connection refused")}
	agg := newTestAggregator(c, empty, failing)

	assert.Equal(t, NoResults, agg.Answer(context.Background(), "xyzzy"))
	assert.Equal(t, NoResults, agg.Answer(context.Background(), "xyzzy"))
	assert.Equal(t, int32(1), empty.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load())
	assert.Equal(t, 1, agg.CacheSize())
}

func TestAnswerComposition(t *testing.T) {
	c := &clock{now: time.Now()}
	agg := newTestAggregator(c, &countingProvider{name: "ddg", hits: marsHits()})

	ans := agg.Answer(context.Background(), "¿Qué es Marte?")
	lines := strings.Split(ans, "\n")

	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "🔎 ¿Qué es Marte?", lines[0])
	assert.Equal(t, 1, strings.Count(ans, "Marte es conocido como el planeta rojo por su color."),
		"duplicate sentences must appear once")

	idx := strings.Index(ans, "\nFuentes:")
	require.True(t, idx > 0, ans)
	sources := strings.Split(ans[idx+1:], "\n")[1:]
	want := []string{
		"- Marte - Wikipedia: https://es.wikipedia.org/wiki/Marte",
		"- NASA Mars: https://www.nasa.gov/mars",
		"- Blog de Marte: https://blog.example.com/marte",
	}
	if diff := cmp.Diff(want, sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestPartialProviderFailure(t *testing.T) {
	c := &clock{now: time.Now()}
	down := &countingProvider{name: "down", err: errors.New("timeout")}
	up := &countingProvider{name: "up", hits: marsHits()}
	agg := newTestAggregator(c, down, up)

	outcomes := agg.Collect(context.Background(), "marte")
	require.Len(t, outcomes, 2)
	assert.Equal(t, "down", outcomes[0].Provider)
	assert.Error(t, outcomes[0].Err)
	assert.Empty(t, outcomes[0].Hits)
	assert.True(t, outcomes[1].OK())

	assert.NotEqual(t, NoResults, agg.Answer(context.Background(), "marte"))
}

func TestConcurrentIdenticalQueriesShareProviderCalls(t *testing.T) {
	c := &clock{now: time.Now()}
	p := &countingProvider{name: "slow", hits: marsHits(), delay: 50 * time.Millisecond}
	agg := newTestAggregator(c, p)

	var wg sync.WaitGroup
	answers := make([]string, 8)
	for i := range answers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			answers[i] = agg.Answer(context.Background(), "marte")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	for _, a := range answers {
		assert.Equal(t, answers[0], a)
	}
}

func TestResultLimitOverride(t *testing.T) {
	var seen atomic.Int32
	p := limitRecorder{seen: &seen}
	agg := New(Config{
		Providers:   []search.TextProvider{p},
		ResultLimit: func() int { return 2 },
		CacheTTL:    time.Minute,
	})
	agg.Answer(context.Background(), "algo")
	assert.Equal(t, int32(2), seen.Load())
}

type limitRecorder struct{ seen *atomic.Int32 }

func (limitRecorder) Name() string { return "limit" }

func (l limitRecorder) TextSearch(_ context.Context, _ string, max int) ([]search.Hit, error) {
	l.seen.Store(int32(max))
	return nil, nil
}

func TestImages(t *testing.T) {
	stub := &imageStub{urls: []string{"https://a/1.jpg", "https://a/2.jpg", "https://a/3.jpg", "https://a/4.jpg", "https://a/5.jpg"}}
	agg := New(Config{Images: stub, CacheTTL: time.Minute})

	got := agg.Images(context.Background(), "gatos")
	assert.True(t, strings.HasPrefix(got, "🖼️ Imágenes de gatos:"))
	assert.Equal(t, 4, strings.Count(got, "\n• "), "at most four images")

	agg.Images(context.Background(), "gatos")
	assert.Equal(t, int32(2), stub.calls.Load(), "image answers are not cached")
}

func TestImagesNotFound(t *testing.T) {
	agg := New(Config{Images: &imageStub{err: errors.New("down")}})
	assert.Equal(t, "No encontré imágenes para gatos.", agg.Images(context.Background(), "gatos"))

	none := New(Config{})
	assert.Equal(t, "No encontré imágenes para perros.", none.Images(context.Background(), "perros"))
}
