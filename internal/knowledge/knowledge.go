// Package knowledge answers fixed questions from a local YAML file before
// any other intent is considered.
//
// File format:
//
//	entries:
//	  - patterns: ["quién eres", "cómo te llamas"]
//	    answer: "Soy Jarvis, tu asistente."
//	  - patterns: ["horario de la oficina"]
//	    match: exact
//	    answer: "De 9:00 a 18:00."
//
// Matching ignores case, accents and punctuation. "contains" (the default)
// matches the pattern as a whole-word phrase anywhere in the message;
// "exact" requires the whole message to equal the pattern.
package knowledge

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"jarvis/internal/logging"
	"jarvis/internal/textnorm"
)

// Match modes.
const (
	MatchContains = "contains"
	MatchExact    = "exact"
)

// Entry is one question/answer rule.
type Entry struct {
	Patterns []string `yaml:"patterns"`
	Match    string   `yaml:"match,omitempty"`
	Answer   string   `yaml:"answer"`
}

type file struct {
	Entries []Entry `yaml:"entries"`
}

type compiled struct {
	phrases []string // folded, space-joined words
	exact   bool
	answer  string
}

// Base is a reloadable set of entries. It is safe for concurrent use.
type Base struct {
	mu      sync.RWMutex
	path    string
	entries []compiled
}

// Load reads the knowledge file at path.
func Load(path string) (*Base, error) {
	b := &Base{path: path}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// FromEntries builds a Base without a backing file.
func FromEntries(entries []Entry) (*Base, error) {
	c, err := compile(entries)
	if err != nil {
		return nil, err
	}
	return &Base{entries: c}, nil
}

// Path returns the backing file path.
func (b *Base) Path() string {
	return b.path
}

// Reload re-reads the backing file. On error the previous entries stay.
func (b *Base) Reload() error {
	if b.path == "" {
		return errors.New("knowledge base has no backing file")
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("failed to read knowledge file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse knowledge file: %w", err)
	}
	c, err := compile(f.Entries)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.entries = c
	b.mu.Unlock()
	logging.Knowledge("Loaded %d knowledge entries from %s", len(c), b.path)
	return nil
}

// Len returns the number of entries.
func (b *Base) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Lookup returns the answer of the first entry matching text.
func (b *Base) Lookup(text string) (string, bool) {
	msg := strings.Join(textnorm.Words(text), " ")
	if msg == "" {
		return "", false
	}
	padded := " " + msg + " "

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.entries {
		for _, p := range e.phrases {
			if e.exact && msg == p {
				return e.answer, true
			}
			if !e.exact && strings.Contains(padded, " "+p+" ") {
				return e.answer, true
			}
		}
	}
	return "", false
}

func compile(entries []Entry) ([]compiled, error) {
	out := make([]compiled, 0, len(entries))
	for i, e := range entries {
		answer := strings.TrimSpace(e.Answer)
		if answer == "" {
			return nil, fmt.Errorf("knowledge entry %d has no answer", i)
		}
		mode := strings.ToLower(strings.TrimSpace(e.Match))
		if mode != "" && mode != MatchContains && mode != MatchExact {
			return nil, fmt.Errorf("knowledge entry %d: unknown match mode %q", i, e.Match)
		}
		c := compiled{exact: mode == MatchExact, answer: answer}
		for _, p := range e.Patterns {
			if phrase := strings.Join(textnorm.Words(p), " "); phrase != "" {
				c.phrases = append(c.phrases, phrase)
			}
		}
		if len(c.phrases) == 0 {
			return nil, fmt.Errorf("knowledge entry %d has no patterns", i)
		}
		out = append(out, c)
	}
	return out, nil
}
