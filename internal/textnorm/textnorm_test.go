package textnorm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"  idea   lanzar\tlanding \n page ", "idea lanzar landing page"},
		{"hola", "hola"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Guárdala", "guardala"},
		{"  PRONÓSTICO  de   mañana ", "pronostico de manana"},
		{"¿Qué hora es?", "¿que hora es?"},
		{"imágenes", "imagenes"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWords(t *testing.T) {
	got := Words("¿Qué hora es en Buenos Aires?")
	want := []string{"que", "hora", "es", "en", "buenos", "aires"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Words mismatch (-want +got):\n%s", diff)
	}
	if !HasWord(got, "clima", "hora") {
		t.Error("HasWord should match hora")
	}
	if HasWord(Words("ahora mismo"), "hora") {
		t.Error("HasWord must match whole words only")
	}
}

func TestPreview(t *testing.T) {
	short := "hola mundo"
	if got := Preview(short); got != short {
		t.Errorf("Preview(short) = %q", got)
	}

	exact := strings.Repeat("a", PreviewLimit)
	if got := Preview(exact); got != exact {
		t.Error("input at the limit must not be truncated")
	}

	long := strings.Repeat("x", 300)
	got := Preview(long)
	if n := utf8.RuneCountInString(got); n != 181 {
		t.Errorf("Preview(300 runes) has %d runes, want 181", n)
	}
	if !strings.HasSuffix(got, Ellipsis) {
		t.Errorf("Preview must end with ellipsis: %q", got)
	}

	accented := strings.Repeat("é", 200)
	if n := utf8.RuneCountInString(Preview(accented)); n != 181 {
		t.Errorf("Preview must count runes, not bytes; got %d", n)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("Uno. Dos!  Tres? Cuatro sin punto")
	want := []string{"Uno.", "Dos!", "Tres?", "Cuatro sin punto"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sentences mismatch (-want +got):\n%s", diff)
	}
	if got := Sentences("3.14 es pi."); len(got) != 1 {
		t.Errorf("decimal point must not split: %q", got)
	}
	if got := Sentences("   "); len(got) != 0 {
		t.Errorf("blank input must yield no sentences, got %q", got)
	}
}
