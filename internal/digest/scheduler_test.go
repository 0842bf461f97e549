package digest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"jarvis/internal/notes"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNextRun(t *testing.T) {
	s, err := New(notes.NewMemoryStore(), "20:00", 5, time.UTC, nil)
	require.NoError(t, err)

	morning := time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC)
	assert.True(t, time.Date(2025, 6, 4, 20, 0, 0, 0, time.UTC).Equal(s.NextRun(morning)))

	exactly := time.Date(2025, 6, 4, 20, 0, 0, 0, time.UTC)
	assert.True(t, time.Date(2025, 6, 5, 20, 0, 0, 0, time.UTC).Equal(s.NextRun(exactly)))
}

func TestNewRejectsBadTime(t *testing.T) {
	_, err := New(notes.NewMemoryStore(), "8pm", 5, nil, nil)
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	store := notes.NewMemoryStore()
	var got []string
	s, err := New(store, "20:00", 2, time.UTC, func(_ context.Context, text string) { got = append(got, text) })
	require.NoError(t, err)
	ctx := context.Background()

	text, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No tienes ideas registradas hoy.", text)

	for _, n := range []string{"uno", "dos", "tres"} {
		_, err := store.Save(ctx, notes.Note{Text: n})
		require.NoError(t, err)
	}
	text, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Resumen de tus últimas ideas:\n- tres\n- dos", text)
	assert.Len(t, got, 2)
}

// everyFew fires every few milliseconds.
type everyFew struct{}

func (everyFew) Next(t time.Time) time.Time { return t.Add(5 * time.Millisecond) }

func TestSchedulerFiresAndStops(t *testing.T) {
	var mu sync.Mutex
	var sent []string

	s, err := New(notes.NewMemoryStore(), "20:00", 5, time.UTC,
		func(_ context.Context, text string) {
			mu.Lock()
			sent = append(sent, text)
			mu.Unlock()
		},
		WithSchedule(everyFew{}),
	)
	require.NoError(t, err)

	s.Start(context.Background())
	s.Start(context.Background())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "No tienes ideas registradas hoy.", sent[0])
}

func TestNextRunUsesZone(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	s, err := New(notes.NewMemoryStore(), "08:30", 5, madrid, nil)
	require.NoError(t, err)

	// 06:00 UTC is 08:00 in Madrid during summer time.
	now := time.Date(2025, 6, 4, 6, 0, 0, 0, time.UTC)
	next := s.NextRun(now)
	assert.True(t, time.Date(2025, 6, 4, 8, 30, 0, 0, madrid).Equal(next), next)
	assert.Equal(t, madrid, next.Location())
	assert.Equal(t, 30*time.Minute, next.Sub(now))
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	s, err := New(notes.NewMemoryStore(), "20:00", 5, time.UTC, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Stop()
}
