// Package notes persists the user's saved ideas. Notes are append-only:
// they are never edited, only removed by position or cleared in bulk.
package notes

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"jarvis/internal/textnorm"
)

var (
	// ErrEmptyText is returned when a note has no text after cleanup.
	ErrEmptyText = errors.New("note text is empty")
	// ErrNotFound is returned when a delete position is out of range.
	ErrNotFound = errors.New("note not found")
)

// Default metadata for notes saved from chat commands.
const (
	DefaultCategory = "ideas"
	DefaultPriority = 2
)

// Note is one saved idea.
type Note struct {
	ID        int64
	Text      string
	Category  string
	Priority  int
	Tags      []string
	CreatedAt time.Time
}

// Store is the note persistence contract used by the router.
type Store interface {
	// Save stores n and returns it with ID and CreatedAt filled in.
	Save(ctx context.Context, n Note) (Note, error)
	// List returns up to limit notes, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Note, error)
	// Search returns notes whose text or tags contain keyword, ignoring case.
	Search(ctx context.Context, keyword string) ([]Note, error)
	// Delete removes the note at a 1-based position of the newest-first listing.
	Delete(ctx context.Context, position int) (Note, error)
	// Clear removes every note and reports how many were removed.
	Clear(ctx context.Context) (int, error)
	Close() error
}

// prepare normalizes a note before it is stored.
func prepare(n Note) (Note, error) {
	n.Text = textnorm.Clean(n.Text)
	if n.Text == "" {
		return n, ErrEmptyText
	}
	if n.Category == "" {
		n.Category = DefaultCategory
	}
	n.Tags = normalizeTags(n.Tags)
	return n, nil
}

func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.ToLower(textnorm.Clean(t))
		t = strings.ReplaceAll(t, ",", " ")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// matches reports whether keyword occurs in the note's text or tags.
func matches(n Note, keyword string) bool {
	if strings.Contains(strings.ToLower(n.Text), keyword) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(t, keyword) {
			return true
		}
	}
	return false
}

// sortNewestFirst orders by insertion ID. CreatedAt is for display only,
// since the wall clock can step backwards.
func sortNewestFirst(ns []Note) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].ID > ns[j].ID })
}

func searchKey(keyword string) string {
	return strings.ToLower(textnorm.Clean(keyword))
}
