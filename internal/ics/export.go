package ics

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"eventsched/internal/models"
)

const (
	productID = "-//eventsched//EN"

	// PropSeats carries the seat count so exported files can be imported back losslessly.
	PropSeats = "X-EVENTSCHED-SEATS"

	// DefaultDuration is the length given to exported events, which only have a start.
	DefaultDuration = time.Hour
)

// ErrNothingToExport is returned when no event has a usable date and time.
var ErrNothingToExport = errors.New("no exportable events")

// uidNamespace scopes the name-based UUIDs derived from event ids.
var uidNamespace = uuid.MustParse("8f6c3c1e-4c55-4d3e-9a57-2b8d0f1e7a10")

// UID returns the stable iCalendar UID for an event id.
func UID(id int) string {
	return uuid.NewSHA1(uidNamespace, []byte(strconv.Itoa(id))).String()
}

// ExportResult reports which events made it into the calendar.
type ExportResult struct {
	Exported int
	// Skipped maps event ids to the reason they were left out.
	Skipped map[int]error
}

// ToVEvent converts an Event to a VEVENT component. Date and Time are read in loc.
func ToVEvent(event models.Event, loc *time.Location, stamp time.Time) (*ical.Component, error) {
	start, err := event.Start(loc)
	if err != nil {
		return nil, err
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, UID(event.ID))
	ve.Props.SetText(ical.PropSummary, event.Name)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(DefaultDuration).UTC())
	ve.Props.SetText(PropSeats, strconv.Itoa(event.Seats))
	ve.Props.SetText(ical.PropDescription, fmt.Sprintf("Event %d, %d seats", event.ID, event.Seats))
	return ve, nil
}

// NewCalendar wraps VEVENTs in a VCALENDAR.
func NewCalendar(children ...*ical.Component) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, children...)
	return cal
}

// Export writes events as a single VCALENDAR to w.
// Events whose date or time is not a real calendar value, and repeated ids,
// are skipped and listed in the result.
func Export(w io.Writer, events []models.Event, loc *time.Location) (ExportResult, error) {
	res := ExportResult{Skipped: make(map[int]error)}
	stamp := time.Now()
	seen := make(map[int]bool, len(events))

	var children []*ical.Component
	for _, e := range events {
		if seen[e.ID] {
			res.Skipped[e.ID] = fmt.Errorf("duplicate id %d", e.ID)
			continue
		}
		ve, err := ToVEvent(e, loc, stamp)
		if err != nil {
			res.Skipped[e.ID] = err
			continue
		}
		seen[e.ID] = true
		children = append(children, ve)
	}
	if len(children) == 0 {
		return res, ErrNothingToExport
	}

	if err := ical.NewEncoder(w).Encode(NewCalendar(children...)); err != nil {
		return res, fmt.Errorf("failed to encode calendar: %w", err)
	}
	res.Exported = len(children)
	return res, nil
}
