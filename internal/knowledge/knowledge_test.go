package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sampleFile = `entries:
  - patterns: ["quién eres", "cómo te llamas"]
    answer: "Soy Jarvis."
  - patterns: ["horario"]
    match: exact
    answer: "De 9:00 a 18:00."
`

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLookup(t *testing.T) {
	b, err := Load(writeFile(t, t.TempDir(), sampleFile))
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"¿Quién eres?", "Soy Jarvis.", true},
		{"oye, como te LLAMAS", "Soy Jarvis.", true},
		{"Horario", "De 9:00 a 18:00.", true},
		{"cuál es el horario", "", false},
		{"quienes", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := b.Lookup(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := FromEntries([]Entry{{Patterns: []string{"x"}}})
	assert.Error(t, err)

	_, err = FromEntries([]Entry{{Patterns: []string{"¿?"}, Answer: "a"}})
	assert.Error(t, err)

	_, err = FromEntries([]Entry{{Patterns: []string{"x"}, Match: "regex", Answer: "a"}})
	assert.Error(t, err)

	b, err := FromEntries([]Entry{{Patterns: []string{"ping"}, Answer: "pong"}})
	require.NoError(t, err)
	got, ok := b.Lookup("ping")
	assert.True(t, ok)
	assert.Equal(t, "pong", got)
	assert.Error(t, b.Reload())
}

func TestReloadKeepsEntriesOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, sampleFile)
	b, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("entries: [::"), 0644))
	assert.Error(t, b.Reload())
	assert.Equal(t, 2, b.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, sampleFile)
	b, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(b)
	require.NoError(t, err)
	w.debounceDur = 20 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`entries:
  - patterns: ["ping"]
    answer: "pong"
`), 0644))

	require.Eventually(t, func() bool {
		got, ok := b.Lookup("ping")
		return ok && got == "pong"
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, w.Reloads(), 1)
	assert.Equal(t, 1, b.Len())
}

func TestWatcherStopWithoutStart(t *testing.T) {
	b, err := Load(writeFile(t, t.TempDir(), sampleFile))
	require.NoError(t, err)
	w, err := NewWatcher(b)
	require.NoError(t, err)
	w.Stop()
}
