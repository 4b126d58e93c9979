package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxNameLen is the longest event name accepted, in bytes.
	MaxNameLen = 49

	// DateLayout and TimeLayout describe the external text formats of Event.Date and Event.Time.
	DateLayout = "02/01/2006"
	TimeLayout = "15:04"
)

// ErrInvalidArgument is returned when an event field fails validation.
var ErrInvalidArgument = errors.New("invalid argument")

// Event represents a single scheduled event.
// Date and Time are kept as the caller wrote them; they are not checked against a calendar.
type Event struct {
	ID    int    // Numeric identifier, [10000, 99999] when generated
	Name  string // Display name, at most MaxNameLen bytes
	Date  string // DD/MM/YYYY
	Time  string // HH:MM
	Seats int    // Seat count, never negative
}

// CheckText rejects control characters, line breaks included, in the text
// fields. Every event is one line in the event file and in displayed output.
func (e Event) CheckText() error {
	for _, f := range []struct{ field, value string }{{"name", e.Name}, {"date", e.Date}, {"time", e.Time}} {
		if strings.IndexFunc(f.value, unicode.IsControl) >= 0 {
			return fmt.Errorf("%w: %s contains a control character", ErrInvalidArgument, f.field)
		}
	}
	return nil
}

// Validate checks field presence, CheckText, the name length limit and the seat count.
func (e Event) Validate() error {
	if err := e.CheckText(); err != nil {
		return err
	}
	if e.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidArgument)
	}
	if len(e.Name) > MaxNameLen {
		return fmt.Errorf("%w: name is longer than %d bytes", ErrInvalidArgument, MaxNameLen)
	}
	if e.Date == "" {
		return fmt.Errorf("%w: date is empty", ErrInvalidArgument)
	}
	if e.Time == "" {
		return fmt.Errorf("%w: time is empty", ErrInvalidArgument)
	}
	if e.Seats < 0 {
		return fmt.Errorf("%w: seats must not be negative", ErrInvalidArgument)
	}
	return nil
}

// String renders the event as id|name|date|time|seats.
func (e Event) String() string {
	return strconv.Itoa(e.ID) + "|" + e.Name + "|" + e.Date + "|" + e.Time + "|" + strconv.Itoa(e.Seats)
}

// Start interprets Date and Time in loc.
func (e Event) Start(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("event %d has no usable start: %w", e.ID, err)
	}
	return t, nil
}

// FromTime formats t into the Date and Time text used by Event.
func FromTime(t time.Time) (date, clock string) {
	return t.Format(DateLayout), t.Format(TimeLayout)
}

// TruncateName replaces control characters with spaces and shortens name to at
// most MaxNameLen bytes without splitting a rune.
// Importers use it for titles coming from other calendars.
func TruncateName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if len(name) <= MaxNameLen {
		return name
	}
	cut := MaxNameLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
