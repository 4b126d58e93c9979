// Package eventlog reads and writes the persisted event file.
//
// Each record is one line, id,name,date,time,seats, with no header. Fields
// are quoted only when they contain a comma, a quote, a line break or a
// leading space, so files holding plain values stay byte-identical to the
// unquoted legacy format.
package eventlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"eventsched/internal/models"
)

// DefaultPath is the file used when nothing else is configured.
const DefaultPath = "events.log"

const fieldsPerRecord = 5

var (
	// ErrPersistenceUnavailable is returned when the event file cannot be opened, read or written.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// ErrMalformedRecord is wrapped by MalformedRecordError.
	ErrMalformedRecord = errors.New("malformed record")
)

// MalformedRecordError reports the first line of the file that could not be parsed.
type MalformedRecordError struct {
	Line int
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s at line %d: %v", ErrMalformedRecord, e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// Load reads all records from path in file order.
//
// A missing file yields no events and no error. Reading stops at the first
// malformed record; the records before it are returned together with a
// *MalformedRecordError.
func Load(path string) ([]models.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil && fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrPersistenceUnavailable, path)
	}
	return Read(f)
}

// Read decodes records from r. See Load for the error contract.
func Read(r io.Reader) ([]models.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fieldsPerRecord
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var events []models.Event
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return events, &MalformedRecordError{Line: perr.StartLine, Err: perr.Err}
			}
			return events, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
		}

		e, err := parseRecord(record)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return events, &MalformedRecordError{Line: line, Err: err}
		}
		events = append(events, e)
	}
}

func parseRecord(record []string) (models.Event, error) {
	id, err := strconv.Atoi(record[0])
	if err != nil {
		return models.Event{}, fmt.Errorf("id %q is not an integer", record[0])
	}
	seats, err := strconv.Atoi(record[4])
	if err != nil {
		return models.Event{}, fmt.Errorf("seats %q is not an integer", record[4])
	}
	if record[1] == "" || record[2] == "" || record[3] == "" {
		return models.Event{}, errors.New("empty text field")
	}
	e := models.Event{
		ID:    id,
		Name:  record[1],
		Date:  record[2],
		Time:  record[3],
		Seats: seats,
	}
	if err := e.CheckText(); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// Save writes events to path in the given order, replacing the file.
// The data goes to a temporary file in the same directory first and is then
// renamed over path, so readers never observe a half-written file.
func Save(path string, events []models.Event) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".eventsched-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(tmp, events); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	return nil
}

// Write encodes events to w without a header.
// Events whose text holds control characters are refused before anything is
// written, since they would not read back unchanged.
func Write(w io.Writer, events []models.Event) error {
	for _, e := range events {
		if err := e.CheckText(); err != nil {
			return fmt.Errorf("event %d: %w", e.ID, err)
		}
	}
	cw := csv.NewWriter(w)
	for _, e := range events {
		if err := cw.Write(record(e)); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	return nil
}

// WriteCSV writes events as a spreadsheet export with an ID,Name,Date,Time,Seats header.
func WriteCSV(w io.Writer, events []models.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "Name", "Date", "Time", "Seats"}); err != nil {
		return err
	}
	for _, e := range events {
		if err := cw.Write(record(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(e models.Event) []string {
	return []string{strconv.Itoa(e.ID), e.Name, e.Date, e.Time, strconv.Itoa(e.Seats)}
}
