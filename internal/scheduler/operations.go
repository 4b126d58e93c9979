package scheduler

import (
	"context"
	"fmt"

	"eventsched/internal/models"
	"eventsched/internal/store"
)

// Insert adds a new event and returns its id.
func (s *Scheduler) Insert(ctx context.Context, name, date, clock string, seats int) (int, error) {
	var id int
	err := s.Update(ctx, func(st *store.EventStore) error {
		var err error
		id, err = st.Insert(name, date, clock, seats)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("Inserted event.", "id", id, "name", name)
	return id, nil
}

// Search looks up an event by id.
func (s *Scheduler) Search(ctx context.Context, id int) (models.Event, error) {
	var e models.Event
	err := s.View(ctx, func(st *store.EventStore) error {
		var err error
		e, err = st.Search(id)
		return err
	})
	return e, err
}

// Modify applies a partial update to an event and returns the stored result.
func (s *Scheduler) Modify(ctx context.Context, id int, u models.EventUpdate) (models.Event, error) {
	var e models.Event
	err := s.Update(ctx, func(st *store.EventStore) error {
		if err := st.Modify(id, u); err != nil {
			return err
		}
		var err error
		e, err = st.Search(id)
		return err
	})
	if err != nil {
		return models.Event{}, err
	}
	s.logger.Info("Modified event.", "id", id)
	return e, nil
}

// Delete removes an event.
func (s *Scheduler) Delete(ctx context.Context, id int) error {
	err := s.Update(ctx, func(st *store.EventStore) error {
		return st.Delete(id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Deleted event.", "id", id)
	return nil
}

// Forward returns all events in insertion order.
func (s *Scheduler) Forward(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := s.View(ctx, func(st *store.EventStore) error {
		events = st.Forward()
		return nil
	})
	return events, err
}

// Reverse returns all events in reverse insertion order.
func (s *Scheduler) Reverse(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := s.View(ctx, func(st *store.EventStore) error {
		events = st.Reverse()
		return nil
	})
	return events, err
}

// DisplayForward renders the events in insertion order.
func (s *Scheduler) DisplayForward(ctx context.Context) ([]string, error) {
	events, err := s.Forward(ctx)
	if err != nil {
		return nil, err
	}
	return store.Render(events), nil
}

// DisplayReverse renders the events in reverse insertion order.
func (s *Scheduler) DisplayReverse(ctx context.Context) ([]string, error) {
	events, err := s.Reverse(ctx)
	if err != nil {
		return nil, err
	}
	return store.Render(events), nil
}

// Generate appends n synthetic events.
func (s *Scheduler) Generate(ctx context.Context, n int) ([]int, error) {
	var ids []int
	err := s.Update(ctx, func(st *store.EventStore) error {
		var err error
		ids, err = st.GenerateRandom(n)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Generated random events.", "count", len(ids))
	return ids, nil
}

// Count returns the number of stored events.
func (s *Scheduler) Count(ctx context.Context) (int, error) {
	var n int
	err := s.View(ctx, func(st *store.EventStore) error {
		n = st.Count()
		return nil
	})
	return n, err
}

// ImportEvents inserts events coming from another calendar, giving each a new id.
// Events that fail validation are logged and skipped. The returned ids are in insertion order.
func (s *Scheduler) ImportEvents(ctx context.Context, events []models.Event) ([]int, error) {
	var ids []int
	err := s.Update(ctx, func(st *store.EventStore) error {
		for _, e := range events {
			id, err := st.Insert(e.Name, e.Date, e.Time, e.Seats)
			if err != nil {
				s.logger.Warn("Skipping imported event.", "name", e.Name, "date", e.Date, "error", err)
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 && len(events) > 0 {
			return fmt.Errorf("none of the %d imported events could be stored", len(events))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Imported events.", "count", len(ids), "skipped", len(events)-len(ids))
	return ids, nil
}
