package aggregator

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"jarvis/internal/search"
)

func TestSummarizeDeduplicatesSentences(t *testing.T) {
	hits := []search.Hit{
		{Snippet: "La fotosíntesis convierte la luz solar en energía química. La fotosíntesis convierte la luz solar en energía química."},
		{Snippet: "las plantas usan la fotosíntesis para producir glucosa y oxígeno."},
	}
	got := Summarize(hits, 3)
	count := 0
	for _, s := range got {
		if strings.EqualFold(s, "La fotosíntesis convierte la luz solar en energía química.") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected the duplicated sentence once, got %d in %q", count, got)
	}
}

func TestSummarizeLengthBand(t *testing.T) {
	long := strings.Repeat("palabra ", 40) + "final."
	hits := []search.Hit{{Snippet: "Corta. " + long + " Esta oración tiene una longitud razonable para entrar."}}

	got := Summarize(hits, 3)
	want := []string{"Esta oración tiene una longitud razonable para entrar."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeRanksByTermFrequency(t *testing.T) {
	hits := []search.Hit{{Snippet: "Un dato curioso sin relación alguna con nada. " +
		"El volcán Teide es el pico más alto de España. " +
		"El Teide es un volcán activo en Tenerife, España."}}

	got := Summarize(hits, 1)
	if len(got) != 1 || !strings.Contains(got[0], "Teide") {
		t.Errorf("expected a Teide sentence first, got %q", got)
	}
}

func TestSummarizeFallbacks(t *testing.T) {
	if got := Summarize([]search.Hit{{Title: "T", Snippet: "Muy corta."}}, 3); len(got) != 1 || got[0] != "Muy corta." {
		t.Errorf("snippet fallback failed: %q", got)
	}
	if got := Summarize([]search.Hit{{Title: "  Solo título "}}, 3); len(got) != 1 || got[0] != "Solo título" {
		t.Errorf("title fallback failed: %q", got)
	}
	if got := Summarize(nil, 3); got != nil {
		t.Errorf("expected nil for no hits, got %q", got)
	}
}

func TestTrustedFirstIsStable(t *testing.T) {
	hits := []search.Hit{
		{URL: "https://a.com/1"},
		{URL: "https://en.wikipedia.org/x"},
		{URL: "https://b.com/2"},
		{URL: "https://nasa.gov/y"},
	}
	got := TrustedFirst(hits, trusted)
	var urls []string
	for _, h := range got {
		urls = append(urls, h.URL)
	}
	want := []string{"https://en.wikipedia.org/x", "https://nasa.gov/y", "https://a.com/1", "https://b.com/2"}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("TrustedFirst mismatch (-want +got):\n%s", diff)
	}
}

func TestCitationsDistinctHosts(t *testing.T) {
	hits := []search.Hit{
		{URL: "https://a.com/1"},
		{URL: "https://www.a.com/2"},
		{URL: "not a url"},
		{URL: "https://b.com/3"},
		{URL: "https://c.com/4"},
		{URL: "https://d.com/5"},
	}
	got := Citations(hits, 3)
	var urls []string
	for _, h := range got {
		urls = append(urls, h.URL)
	}
	want := []string{"https://a.com/1", "https://b.com/3", "https://c.com/4"}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("Citations mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheExpiryAndEviction(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewCache(2, time.Minute, c.Now)

	cache.Set("a", "A")
	c.Advance(time.Second)
	cache.Set("b", "B")
	c.Advance(time.Second)
	cache.Set("c", "C") // evicts a

	if _, ok := cache.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if v, ok := cache.Get("c"); !ok || v != "C" {
		t.Errorf("Get(c) = %q, %v", v, ok)
	}

	c.Advance(time.Minute)
	if _, ok := cache.Get("c"); ok {
		t.Error("entry older than TTL must not be served")
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1 after dropping the expired entry", cache.Size())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewCache(2, time.Minute, c.Now)

	cache.Set("a", "A")
	cache.Set("b", "B")
	cache.Get("a")
	cache.Set("c", "C") // evicts b

	if _, ok := cache.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if v, ok := cache.Get("a"); !ok || v != "A" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}

	cache.Clear()
	if cache.Size() != 0 {
		t.Errorf("Size() after Clear = %d", cache.Size())
	}
}
