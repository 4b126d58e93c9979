package models

import "fmt"

// EventUpdate describes a partial modification of an Event.
// A nil field leaves the stored value unchanged.
type EventUpdate struct {
	Name  *string
	Date  *string
	Time  *string
	Seats *int
}

// UpdateFromSentinels builds an EventUpdate from the command-line convention
// where an empty string or a non-positive seat count means "leave unchanged".
func UpdateFromSentinels(name, date, clock string, seats int) EventUpdate {
	var u EventUpdate
	if name != "" {
		u.Name = &name
	}
	if date != "" {
		u.Date = &date
	}
	if clock != "" {
		u.Time = &clock
	}
	if seats > 0 {
		u.Seats = &seats
	}
	return u
}

// IsEmpty reports whether the update would change nothing.
func (u EventUpdate) IsEmpty() bool {
	return u.Name == nil && u.Date == nil && u.Time == nil && u.Seats == nil
}

// Apply returns e with the present fields of u written over it.
// The result is validated; e itself is never modified.
func (u EventUpdate) Apply(e Event) (Event, error) {
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.Time != nil {
		e.Time = *u.Time
	}
	if u.Seats != nil {
		e.Seats = *u.Seats
	}
	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("modify event %d: %w", e.ID, err)
	}
	return e, nil
}
