package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"eventsched/internal/ics"
	"eventsched/internal/models"
)

// basicAuthTransport adds Basic Auth and a User-Agent to every request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "eventsched/1.0")
	return t.Transport.RoundTrip(req)
}

// Options configures a Client.
type Options struct {
	Endpoint string
	Username string
	Password string
	// Calendar is the display name of the target calendar.
	Calendar string
	// Location is the zone event dates and times are read in.
	Location *time.Location
	// HTTPClient overrides the transport; Basic Auth is still added.
	HTTPClient *http.Client
}

// Client pushes events to one calendar on a CalDAV server.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
	loc          *time.Location
}

// NewClient connects to the server and resolves the calendar by name.
func NewClient(ctx context.Context, logger *slog.Logger, opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("caldav endpoint is empty")
	}
	if opts.Calendar == "" {
		return nil, errors.New("caldav calendar name is empty")
	}
	base := http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		base = opts.HTTPClient.Transport
	}
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: base,
	}}

	caldavClient, err := caldav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	c := &Client{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		loc:          loc,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", opts.Calendar)
	calendarPath, err := c.findCalendar(ctx, opts.Calendar)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", opts.Calendar, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// PushEvent creates or replaces the event's calendar object.
// The object name is derived from the event id, so pushing again overwrites it.
func (c *Client) PushEvent(ctx context.Context, event models.Event) error {
	ve, err := ics.ToVEvent(event, c.loc, time.Now())
	if err != nil {
		return err
	}
	cal := ics.NewCalendar(ve)

	objectPath := c.ObjectPath(event.ID)
	c.logger.Debug("Pushing event", "id", event.ID, "path", objectPath)

	writer, err := c.webdavClient.Create(ctx, objectPath)
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event: %w", err)
	}
	return nil
}

// PushResult summarises a PushAll run.
type PushResult struct {
	Pushed int
	Failed map[int]error
}

// PushAll pushes every event, continuing past individual failures.
func (c *Client) PushAll(ctx context.Context, events []models.Event) PushResult {
	res := PushResult{Failed: make(map[int]error)}
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			res.Failed[event.ID] = err
			continue
		}
		if err := c.PushEvent(ctx, event); err != nil {
			c.logger.Error("Failed to push event", "id", event.ID, "name", event.Name, "error", err)
			res.Failed[event.ID] = err
			continue
		}
		res.Pushed++
	}
	c.logger.Info("Pushed events to CalDAV", "pushed", res.Pushed, "failed", len(res.Failed))
	return res
}

// ObjectPath returns the path of an event's calendar object.
func (c *Client) ObjectPath(id int) string {
	return path.Join(c.calendarPath, ics.UID(id)+".ics")
}

// findCalendar walks principal, home set and calendar list and returns the
// server path of the calendar with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
