package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"eventsched/internal/eventlog"
	"eventsched/internal/store"
)

// Scheduler runs event store operations against the persisted event file.
//
// Every call loads the file into a fresh store, runs one operation and, for
// mutating operations that succeed, saves the store back. Calls on the same
// Scheduler are serialised by a single mutex, so a resident process can serve
// several callers. Separate processes sharing a file are not coordinated:
// the last save wins.
type Scheduler struct {
	logger *slog.Logger
	path   string
	opts   []store.Option

	mu sync.Mutex
}

// NewScheduler creates a Scheduler for the event file at path.
func NewScheduler(logger *slog.Logger, path string, opts ...store.Option) *Scheduler {
	if path == "" {
		path = eventlog.DefaultPath
	}
	return &Scheduler{
		logger: logger,
		path:   path,
		opts:   opts,
	}
}

// Path returns the event file location.
func (s *Scheduler) Path() string {
	return s.path
}

// View loads the store and passes it to fn. Changes made by fn are discarded.
func (s *Scheduler) View(ctx context.Context, fn func(*store.EventStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	return fn(st)
}

// Update loads the store, passes it to fn and saves it if fn returns nil.
func (s *Scheduler) Update(ctx context.Context, fn func(*store.EventStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	if err := eventlog.Save(s.path, st.Forward()); err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}
	s.logger.Debug("Saved events.", "file", s.path, "count", st.Count())
	return nil
}

// load hydrates a new store from the event file.
func (s *Scheduler) load() (*store.EventStore, error) {
	st := store.New(s.opts...)

	events, err := eventlog.Load(s.path)
	if err != nil {
		var merr *eventlog.MalformedRecordError
		if !errors.As(err, &merr) {
			return nil, fmt.Errorf("failed to load events: %w", err)
		}
		// Keep what parsed before the bad line, as the legacy tool did.
		s.logger.Warn("Event file has a malformed record, ignoring the rest.",
			"file", s.path, "line", merr.Line, "error", merr.Err, "loaded", len(events))
	}
	for _, e := range events {
		st.Append(e)
	}
	s.logger.Debug("Loaded events.", "file", s.path, "count", st.Count())
	return st, nil
}
