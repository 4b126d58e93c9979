// Package store holds the in-memory ordered collection of events.
//
// Insertion order is the canonical order. Forward and reverse traversal walk
// the same backing slice, so they always agree on membership and count.
// Callers only ever receive copies of stored events.
package store

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"eventsched/internal/models"
)

const (
	minID = 10000
	maxID = 99999

	// NoEvents is the single line rendered for an empty store.
	NoEvents = "No events."

	// maxIDAttempts bounds the retry loop used when unique ids are requested.
	maxIDAttempts = 1000
)

var (
	// ErrNotFound is returned when no event carries the requested id.
	ErrNotFound = errors.New("event not found")

	// ErrIDSpaceExhausted is returned when unique ids are requested and no free id could be drawn.
	ErrIDSpaceExhausted = errors.New("no unused event id available")
)

// Option configures an EventStore.
type Option func(*EventStore)

// WithRand sets the random source used for ids and generated events.
func WithRand(r *rand.Rand) Option {
	return func(s *EventStore) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithUniqueIDs makes Insert retry until it draws an id not already in the store.
// Without it, generated ids may collide with existing ones.
func WithUniqueIDs(unique bool) Option {
	return func(s *EventStore) {
		s.uniqueIDs = unique
	}
}

// EventStore is an ordered, mutable collection of events.
// It is not safe for concurrent use; see scheduler.Scheduler for a serialised wrapper.
type EventStore struct {
	events    []models.Event
	rng       *rand.Rand
	uniqueIDs bool
}

// New creates an empty EventStore.
func New(opts ...Option) *EventStore {
	now := uint64(time.Now().UnixNano())
	s := &EventStore{
		rng: rand.New(rand.NewPCG(now, now>>1|1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Count returns the number of live events.
func (s *EventStore) Count() int {
	return len(s.events)
}

// Insert validates the fields, assigns a fresh id and appends the event at the tail.
func (s *EventStore) Insert(name, date, clock string, seats int) (int, error) {
	e := models.Event{Name: name, Date: date, Time: clock, Seats: seats}
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.nextID()
	if err != nil {
		return 0, err
	}
	e.ID = id
	s.events = append(s.events, e)
	return id, nil
}

// Append adds an event with its id as given. It is the hydration path for
// persisted records and does not check the id for uniqueness.
func (s *EventStore) Append(e models.Event) {
	s.events = append(s.events, e)
}

// Search returns a copy of the first event with the given id.
func (s *EventStore) Search(id int) (models.Event, error) {
	i := s.indexOf(id)
	if i < 0 {
		return models.Event{}, fmt.Errorf("search %d: %w", id, ErrNotFound)
	}
	return s.events[i], nil
}

// Modify applies u to the first event with the given id.
// The stored event is replaced only if the updated event validates.
func (s *EventStore) Modify(id int, u models.EventUpdate) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("modify %d: %w", id, ErrNotFound)
	}
	updated, err := u.Apply(s.events[i])
	if err != nil {
		return err
	}
	s.events[i] = updated
	return nil
}

// Delete removes the first event with the given id, keeping the order of the rest.
func (s *EventStore) Delete(id int) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %d: %w", id, ErrNotFound)
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	return nil
}

// Forward returns a copy of all events in insertion order.
func (s *EventStore) Forward() []models.Event {
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Reverse returns a copy of all events in reverse insertion order.
func (s *EventStore) Reverse() []models.Event {
	out := make([]models.Event, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		out = append(out, s.events[i])
	}
	return out
}

// DisplayForward renders one id|name|date|time|seats line per event in insertion order.
func (s *EventStore) DisplayForward() []string {
	return Render(s.Forward())
}

// DisplayReverse renders one line per event in reverse insertion order.
func (s *EventStore) DisplayReverse() []string {
	return Render(s.Reverse())
}

// Render formats events one per line, or the NoEvents sentinel when there are none.
func Render(events []models.Event) []string {
	if len(events) == 0 {
		return []string{NoEvents}
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, e.String())
	}
	return lines
}

func (s *EventStore) indexOf(id int) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *EventStore) randomID() int {
	return s.rng.IntN(maxID-minID+1) + minID
}

func (s *EventStore) nextID() (int, error) {
	if !s.uniqueIDs {
		return s.randomID(), nil
	}
	for range maxIDAttempts {
		id := s.randomID()
		if s.indexOf(id) < 0 {
			return id, nil
		}
	}
	return 0, ErrIDSpaceExhausted
}
