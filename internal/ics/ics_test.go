package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsched/internal/models"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:single@test
DTSTAMP:20250101T000000Z
DTSTART:20250110T090000Z
DTEND:20250110T100000Z
SUMMARY:Planning
X-EVENTSCHED-SEATS:12
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20250101T000000Z
DTSTART:20250106T140000Z
DTEND:20250106T150000Z
RRULE:FREQ=WEEKLY;COUNT=10
EXDATE:20250113T140000Z
SUMMARY:Sync
END:VEVENT
BEGIN:VEVENT
UID:outside@test
DTSTAMP:20250101T000000Z
DTSTART:20260101T090000Z
SUMMARY:Far away
END:VEVENT
END:VCALENDAR
`

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func januaryWindow() ImportOptions {
	return ImportOptions{
		Location:     time.UTC,
		RangeStart:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:     time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC),
		DefaultSeats: 3,
	}
}

func Test_UID_IsStable(t *testing.T) {
	assert.Equal(t, UID(12345), UID(12345))
	assert.NotEqual(t, UID(12345), UID(12346))
}

func Test_Export(t *testing.T) {
	events := []models.Event{
		{ID: 12345, Name: "Standup", Date: "15/12/2024", Time: "14:00", Seats: 5},
		{ID: 23456, Name: "Someday", Date: "soon", Time: "09:00", Seats: 1},
		{ID: 12345, Name: "Copy", Date: "16/12/2024", Time: "14:00", Seats: 5},
	}

	var buf bytes.Buffer
	res, err := Export(&buf, events, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Exported)
	assert.Contains(t, res.Skipped, 23456)
	assert.Len(t, res.Skipped, 2)

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)

	ev := cal.Events()[0]
	uid, err := ev.Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, UID(12345), uid)

	summary, err := ev.Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Standup", summary)

	start, err := ev.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, time.December, 15, 14, 0, 0, 0, time.UTC)))
}

func Test_Export_Nothing(t *testing.T) {
	var buf bytes.Buffer
	_, err := Export(&buf, []models.Event{{ID: 1, Name: "x", Date: "?", Time: "?"}}, time.UTC)
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Zero(t, buf.Len())
}

func Test_Import_ExpandsRecurrences(t *testing.T) {
	res, err := Import(strings.NewReader(crlf(sampleICS)), januaryWindow())
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Truncated)

	assert.Equal(t, []models.Event{
		{Name: "Planning", Date: "10/01/2025", Time: "09:00", Seats: 12},
		{Name: "Sync", Date: "06/01/2025", Time: "14:00", Seats: 3},
		{Name: "Sync", Date: "20/01/2025", Time: "14:00", Seats: 3},
		{Name: "Sync", Date: "27/01/2025", Time: "14:00", Seats: 3},
	}, res.Events)
}

func Test_Import_ConvertsToLocation(t *testing.T) {
	opts := januaryWindow()
	opts.Location = time.FixedZone("UTC+2", 2*60*60)

	res, err := Import(strings.NewReader(crlf(sampleICS)), opts)
	require.NoError(t, err)
	require.NotEmpty(t, res.Events)
	assert.Equal(t, "11:00", res.Events[0].Time)
}

func Test_Import_TruncatesLongExpansions(t *testing.T) {
	opts := januaryWindow()
	opts.MaxOccurrences = 2

	res, err := Import(strings.NewReader(crlf(sampleICS)), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekly@test"}, res.Truncated)
	assert.Len(t, res.Events, 3)
}

func Test_Import_RequiresWindow(t *testing.T) {
	_, err := Import(strings.NewReader(crlf(sampleICS)), ImportOptions{})
	assert.Error(t, err)

	opts := januaryWindow()
	opts.RangeStart, opts.RangeEnd = opts.RangeEnd, opts.RangeStart
	_, err = Import(strings.NewReader(crlf(sampleICS)), opts)
	assert.Error(t, err)
}

func Test_ExportThenImport_RoundTrip(t *testing.T) {
	events := []models.Event{
		{ID: 12345, Name: "Standup", Date: "15/01/2025", Time: "09:30", Seats: 5},
		{ID: 54321, Name: "Lunch with team", Date: "16/01/2025", Time: "12:00", Seats: 0},
	}

	var buf bytes.Buffer
	_, err := Export(&buf, events, time.UTC)
	require.NoError(t, err)

	res, err := Import(&buf, januaryWindow())
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	for i, got := range res.Events {
		want := events[i]
		want.ID = 0
		assert.Equal(t, want, got)
	}
}
