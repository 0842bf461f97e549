// Package digest sends a daily summary of the newest notes.
package digest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jarvis/internal/logging"
	"jarvis/internal/notes"
)

// Sink receives each rendered digest.
type Sink func(ctx context.Context, text string)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSchedule replaces the daily schedule, for tests.
func WithSchedule(sched cron.Schedule) Option {
	return func(s *Scheduler) { s.schedule = sched }
}

// Scheduler runs the digest once a day at a fixed local time.
type Scheduler struct {
	mu       sync.Mutex
	store    notes.Store
	count    int
	loc      *time.Location
	sink     Sink
	schedule cron.Schedule
	cron     *cron.Cron
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a Scheduler firing every day at "HH:MM" in loc.
func New(store notes.Store, at string, count int, loc *time.Location, sink Sink, opts ...Option) (*Scheduler, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid digest time %q: %w", at, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if count <= 0 {
		count = 5
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()))
	if err != nil {
		return nil, fmt.Errorf("invalid digest time %q: %w", at, err)
	}
	if spec, ok := sched.(*cron.SpecSchedule); ok {
		spec.Location = loc
	}
	s := &Scheduler{
		store:    store,
		count:    count,
		loc:      loc,
		sink:     sink,
		schedule: sched,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NextRun returns the first firing time strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	return s.schedule.Next(now).In(s.loc)
}

// RunOnce renders the digest and hands it to the sink.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	text, err := notes.Digest(ctx, s.store, s.count)
	if err != nil {
		return "", err
	}
	if s.sink != nil {
		s.sink(ctx, text)
	}
	return text, nil
}

// Start launches the cron runner. It is non-blocking; the runner stops on
// Stop or when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}

	c := cron.New(cron.WithLocation(s.loc))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			logging.NotesError("digest failed: %v", err)
		}
	}))
	c.Start()
	logging.Notes("Next digest at %s", s.NextRun(time.Now()).Format(notes.TimestampLayout))

	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	s.cron, s.stopCh, s.doneCh = c, stopCh, doneCh
	go func() {
		defer close(doneCh)
		select {
		case <-ctx.Done():
		case <-stopCh:
		}
		<-c.Stop().Done()
	}()
}

// Stop ends the runner and waits for a digest in progress to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cron == nil {
		s.mu.Unlock()
		return
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.cron = nil
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}
