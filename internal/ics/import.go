package ics

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	arical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"eventsched/internal/models"
)

const (
	defaultMaxOccurrences = 500
	untitled              = "Untitled"
)

// ImportOptions controls how an ICS payload becomes events.
type ImportOptions struct {
	// Location is the zone the resulting date and time text is written in.
	// If nil, UTC is used.
	Location *time.Location

	// RangeStart / RangeEnd bound the occurrences that are imported.
	// Recurring events are expanded within this window.
	RangeStart time.Time
	RangeEnd   time.Time

	// DefaultSeats is used when a VEVENT has no seat count of its own.
	DefaultSeats int

	// MaxOccurrences caps the expansion of a single recurring event.
	// If zero, 500 is used.
	MaxOccurrences int
}

// ImportResult holds the converted events and the VEVENTs that could not be used.
type ImportResult struct {
	Events []models.Event
	// Skipped lists UIDs (or summaries when the UID is missing) with the reason.
	Skipped map[string]error
	// Truncated lists UIDs whose expansion hit MaxOccurrences.
	Truncated []string
}

// Import parses an ICS payload and converts every occurrence inside the window
// to an Event with id 0, ready to be inserted.
func Import(r io.Reader, opts ImportOptions) (ImportResult, error) {
	res := ImportResult{Skipped: make(map[string]error)}

	if opts.RangeEnd.IsZero() {
		return res, errors.New("import: range end is required")
	}
	if opts.RangeEnd.Before(opts.RangeStart) {
		return res, errors.New("import: range end is before range start")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}

	cal, err := arical.ParseCalendar(r)
	if err != nil {
		return res, fmt.Errorf("failed to parse calendar: %w", err)
	}

	for _, ve := range cal.Events() {
		key := propValue(ve, arical.ComponentPropertyUniqueId)
		if key == "" {
			key = propValue(ve, arical.ComponentPropertySummary)
		}

		events, truncated, err := convertVEvent(ve, opts)
		if err != nil {
			res.Skipped[key] = err
			continue
		}
		if truncated {
			res.Truncated = append(res.Truncated, key)
		}
		res.Events = append(res.Events, events...)
	}
	return res, nil
}

func convertVEvent(ve *arical.VEvent, opts ImportOptions) ([]models.Event, bool, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, false, fmt.Errorf("no usable DTSTART: %w", err)
	}

	name := models.TruncateName(propValue(ve, arical.ComponentPropertySummary))
	if name == "" {
		name = untitled
	}

	seats := opts.DefaultSeats
	if raw := propValue(ve, arical.ComponentProperty(PropSeats)); raw != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 0 {
			seats = n
		}
	}

	starts, truncated, err := occurrences(ve, start, opts)
	if err != nil {
		return nil, false, err
	}

	out := make([]models.Event, 0, len(starts))
	for _, s := range starts {
		date, clock := models.FromTime(s.In(opts.Location))
		out = append(out, models.Event{Name: name, Date: date, Time: clock, Seats: seats})
	}
	return out, truncated, nil
}

// occurrences returns the start times of ve inside the import window.
func occurrences(ve *arical.VEvent, start time.Time, opts ImportOptions) ([]time.Time, bool, error) {
	raw := propValue(ve, arical.ComponentPropertyRrule)
	if raw == "" {
		if start.Before(opts.RangeStart) || start.After(opts.RangeEnd) {
			return nil, false, nil
		}
		return []time.Time{start}, false, nil
	}

	r, err := rrule.StrToRRule(raw)
	if err != nil {
		return nil, false, fmt.Errorf("invalid RRULE %q: %w", raw, err)
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, p := range ve.GetProperties(arical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, start.Location()); err == nil {
				set.ExDate(t)
			}
		}
	}

	times := set.Between(opts.RangeStart.In(start.Location()), opts.RangeEnd.In(start.Location()), true)
	if len(times) > opts.MaxOccurrences {
		return times[:opts.MaxOccurrences], true, nil
	}
	return times, false, nil
}

func propValue(ve *arical.VEvent, prop arical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// parseICSTime parses the basic DATE / DATE-TIME / UTC forms used by EXDATE.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
