package aggregator

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"jarvis/internal/search"
	"jarvis/internal/textnorm"
)

// Sentence length band, in characters, for summary candidates.
const (
	minSentenceLen = 30
	maxSentenceLen = 220
)

var termPattern = regexp.MustCompile(`[a-záéíóúüñ0-9]{3,}`)

func terms(s string) []string {
	return termPattern.FindAllString(strings.ToLower(s), -1)
}

// Summarize builds an extractive summary of at most k sentences from the
// hits' snippets. Sentences are ranked by the mean frequency of their terms
// across all snippets. It falls back to the first non-empty snippet, then
// the first title, and returns nil when the hits carry no text at all.
func Summarize(hits []search.Hit, k int) []string {
	if k <= 0 {
		k = 3
	}

	var snippets []string
	for _, h := range hits {
		if s := textnorm.Clean(h.Snippet); s != "" {
			snippets = append(snippets, s)
		}
	}
	text := strings.Join(snippets, " ")

	var candidates []string
	for _, s := range textnorm.Sentences(text) {
		if n := utf8.RuneCountInString(s); n >= minSentenceLen && n <= maxSentenceLen {
			candidates = append(candidates, s)
		}
	}

	if len(candidates) == 0 {
		if len(snippets) > 0 {
			return []string{snippets[0]}
		}
		for _, h := range hits {
			if t := textnorm.Clean(h.Title); t != "" {
				return []string{t}
			}
		}
		return nil
	}

	freq := make(map[string]int)
	for _, w := range terms(text) {
		freq[w]++
	}

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, s := range candidates {
		ts := terms(s)
		var score float64
		if len(ts) > 0 {
			sum := 0
			for _, t := range ts {
				sum += freq[t]
			}
			score = float64(sum) / float64(len(ts))
		}
		ranked = append(ranked, scored{text: s, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	seen := make(map[string]bool)
	out := make([]string, 0, k)
	for _, r := range ranked {
		key := strings.Join(textnorm.Words(r.text), " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r.text)
		if len(out) == k {
			break
		}
	}
	return out
}

// TrustedFirst returns hits with trusted hosts first, each group keeping
// its original order.
func TrustedFirst(hits []search.Hit, trust search.TrustList) []search.Hit {
	out := make([]search.Hit, 0, len(hits))
	var others []search.Hit
	for _, h := range hits {
		if trust.Trusted(h.URL) {
			out = append(out, h)
		} else {
			others = append(others, h)
		}
	}
	return append(out, others...)
}

// Citations keeps the first hit per distinct host, up to max.
func Citations(hits []search.Hit, max int) []search.Hit {
	if max <= 0 {
		max = 3
	}
	used := make(map[string]bool)
	var out []search.Hit
	for _, h := range hits {
		host := search.Host(h.URL)
		if host == "" || used[host] {
			continue
		}
		used[host] = true
		out = append(out, h)
		if len(out) == max {
			break
		}
	}
	return out
}
