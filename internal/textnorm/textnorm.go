// Package textnorm holds the text utilities shared by the router and the
// aggregator: whitespace cleanup, accent-insensitive folding for keyword
// matching and bounded previews for echo replies.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PreviewLimit is the rune count kept by Preview before the ellipsis.
const PreviewLimit = 180

// Ellipsis terminates truncated previews.
const Ellipsis = "…"

// Clean collapses every run of whitespace into a single space and trims.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Lower cleans and lower-cases s. Accents are preserved.
func Lower(s string) string {
	return strings.ToLower(Clean(s))
}

// Fold cleans, lower-cases and strips combining marks so that "Guárdala"
// and "guardala" compare equal. "ñ" folds to "n".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, Lower(s))
	if err != nil {
		return Lower(s)
	}
	return out
}

// Words splits folded text into tokens of letters and digits.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HasWord reports whether any of the folded words equals one of the
// candidates. Candidates must already be folded.
func HasWord(words []string, candidates ...string) bool {
	for _, w := range words {
		for _, c := range candidates {
			if w == c {
				return true
			}
		}
	}
	return false
}

// Sentences splits s after every '.', '!' or '?' that is followed by
// whitespace. Pieces are trimmed and empty pieces dropped.
func Sentences(s string) []string {
	var out []string
	r := []rune(s)
	start := 0
	for i := 0; i < len(r)-1; i++ {
		if (r[i] == '.' || r[i] == '!' || r[i] == '?') && unicode.IsSpace(r[i+1]) {
			if piece := strings.TrimSpace(string(r[start : i+1])); piece != "" {
				out = append(out, piece)
			}
			start = i + 1
		}
	}
	if piece := strings.TrimSpace(string(r[start:])); piece != "" {
		out = append(out, piece)
	}
	return out
}

// Preview returns s unchanged when it fits in PreviewLimit runes, otherwise
// its first PreviewLimit runes followed by Ellipsis.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= PreviewLimit {
		return s
	}
	r := []rune(s)
	return string(r[:PreviewLimit]) + Ellipsis
}
