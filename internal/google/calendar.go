package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"eventsched/internal/models"
)

const (
	credentialsFile = "credentials.json"
	outOfBandURL    = "urn:ietf:wg:oauth:2.0:oob"
)

// CalendarClient reads events from the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
	loc     *time.Location
	seats   int
}

// NewClient creates a Google Calendar client for accountName, using the token
// saved by the auth command in token-<accountName>.json under tokenDir.
// Imported events get their date and time text in loc and a seat count of seats.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, tokenDir, accountName string, loc *time.Location, seats int) (*CalendarClient, error) {
	config, err := OAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(TokenPath(tokenDir, accountName))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return newCalendarClient(service, logger, loc, seats), nil
}

func newCalendarClient(service *calendar.Service, logger *slog.Logger, loc *time.Location, seats int) *CalendarClient {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarClient{service: service, logger: logger, loc: loc, seats: seats}
}

// UpcomingEvents fetches the next days of timed events from calendarID.
func (c *CalendarClient) UpcomingEvents(ctx context.Context, calendarID string, days int) ([]models.Event, error) {
	c.logger.Debug("Fetching upcoming events", "calendarID", calendarID, "days", days)
	now := time.Now().UTC()
	tmin := now.Format(time.RFC3339)
	tmax := now.Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)

	var items []*calendar.Event
	err := c.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin).
		TimeMax(tmax).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Info("Fetched events from Google Calendar", "count", len(items), "calendarID", calendarID)
	return c.toEvents(items), nil
}

// toEvents converts Google Calendar events to Events with id 0.
// All-day events have no start time and are skipped.
func (c *CalendarClient) toEvents(items []*calendar.Event) []models.Event {
	var events []models.Event
	for _, item := range items {
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			c.logger.Warn("Skipping Google event with unreadable start", "id", item.Id, "start", item.Start.DateTime)
			continue
		}

		name := models.TruncateName(item.Summary)
		if name == "" {
			name = "Untitled"
		}
		date, clock := models.FromTime(start.In(c.loc))
		events = append(events, models.Event{Name: name, Date: date, Time: clock, Seats: c.seats})
	}
	return events
}

// OAuthConfig returns the OAuth2 config for read-only calendar access.
// Explicit client credentials take precedence over a local credentials.json file.
func OAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  outOfBandURL,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = outOfBandURL
	return config, nil
}

// TokenFromWeb exchanges an authorization code for a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenPath returns the token file of an account.
func TokenPath(dir, accountName string) string {
	return filepath.Join(dir, "token-"+accountName+".json")
}

// SaveToken writes a token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// TokenAccounts lists the account names that have a token file in dir.
func TokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		name := file.Name()
		if strings.HasPrefix(name, "token-") && strings.HasSuffix(name, ".json") {
			accounts = append(accounts, strings.TrimSuffix(strings.TrimPrefix(name, "token-"), ".json"))
		}
	}
	return accounts, nil
}
