package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"eventsched/internal/caldav"
	"eventsched/internal/eventlog"
	"eventsched/internal/google"
	"eventsched/internal/ics"
	"eventsched/internal/models"
	"eventsched/internal/store"
	"eventsched/internal/web"
)

// tokenDir holds the token-<account>.json files written by auth.
const tokenDir = "."

// openOutput returns the file at path, or the app's writer for "-".
func openOutput(c *cli.Context, path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{c.App.Writer}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to create %s: %v", path, err), 1)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func exportICSCommand() *cli.Command {
	return &cli.Command{
		Name:      "export_ics",
		Usage:     "Write all events as an iCalendar file (- for stdout).",
		ArgsUsage: "<path|->",
		Action: func(c *cli.Context) error {
			if err := usageError(c, 1); err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			loc, err := e.cfg.Location()
			if err != nil {
				return commandError(err)
			}

			events, err := e.sched.Forward(c.Context)
			if err != nil {
				return commandError(err)
			}
			if len(events) == 0 {
				fmt.Fprintln(c.App.Writer, store.NoEvents)
				return nil
			}

			out, err := openOutput(c, c.Args().First())
			if err != nil {
				return err
			}
			res, err := ics.Export(out, events, loc)
			closeErr := out.Close()
			for id, reason := range res.Skipped {
				e.logger.Warn("Event not exported.", "id", id, "reason", reason)
			}
			if err != nil {
				return commandError(err)
			}
			if closeErr != nil {
				return commandError(closeErr)
			}
			e.logger.Info("Exported events.", "count", res.Exported, "skipped", len(res.Skipped))
			return nil
		},
	}
}

func importICSCommand() *cli.Command {
	return &cli.Command{
		Name:      "import_ics",
		Usage:     "Insert the occurrences found in an iCalendar file (- for stdin).",
		ArgsUsage: "<path|->",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "first day of the window, DD/MM/YYYY (default today)"},
			&cli.IntFlag{Name: "days", Value: 30, Usage: "length of the window in days"},
			&cli.IntFlag{Name: "seats", Usage: "seats for events that carry no seat count"},
		},
		Action: func(c *cli.Context) error {
			if err := usageError(c, 1); err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			loc, err := e.cfg.Location()
			if err != nil {
				return commandError(err)
			}

			start, err := windowStart(c.String("from"), loc)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if c.Int("days") < 1 {
				return cli.Exit("days must be at least 1", 1)
			}

			var in io.Reader = c.App.Reader
			if path := c.Args().First(); path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return cli.Exit(fmt.Sprintf("failed to open %s: %v", path, err), 1)
				}
				defer f.Close()
				in = f
			}

			res, err := ics.Import(in, ics.ImportOptions{
				Location:     loc,
				RangeStart:   start,
				RangeEnd:     start.AddDate(0, 0, c.Int("days")),
				DefaultSeats: c.Int("seats"),
			})
			if err != nil {
				return commandError(err)
			}
			for uid, reason := range res.Skipped {
				e.logger.Warn("Calendar entry not imported.", "uid", uid, "reason", reason)
			}
			for _, uid := range res.Truncated {
				e.logger.Warn("Recurring entry truncated.", "uid", uid)
			}
			return insertImported(c, e, res.Events)
		},
	}
}

func windowStart(from string, loc *time.Location) (time.Time, error) {
	if from == "" {
		y, m, d := time.Now().In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation(models.DateLayout, from, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --from date '%s', want DD/MM/YYYY", from)
	}
	return t, nil
}

// insertImported stores events and prints the new ids, one per line.
func insertImported(c *cli.Context, e *env, events []models.Event) error {
	if len(events) == 0 {
		e.logger.Info("Nothing to import.")
		return nil
	}
	ids, err := e.sched.ImportEvents(c.Context, events)
	if err != nil {
		return commandError(err)
	}
	for _, id := range ids {
		fmt.Fprintln(c.App.Writer, id)
	}
	return nil
}

func downloadCSVCommand() *cli.Command {
	return &cli.Command{
		Name:      "download_csv",
		Usage:     "Write all events as CSV with a header row (- for stdout).",
		ArgsUsage: "<path|->",
		Action: func(c *cli.Context) error {
			if err := usageError(c, 1); err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}

			events, err := e.sched.Forward(c.Context)
			if err != nil {
				return commandError(err)
			}
			if len(events) == 0 {
				return cli.Exit("No data", 1)
			}

			out, err := openOutput(c, c.Args().First())
			if err != nil {
				return err
			}
			if err := eventlog.WriteCSV(out, events); err != nil {
				out.Close()
				return commandError(err)
			}
			return commandError(out.Close())
		},
	}
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Upload every event to the configured CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "watch", Usage: "cron schedule to keep pushing on, e.g. '@every 15m'"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			loc, err := e.cfg.Location()
			if err != nil {
				return commandError(err)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := caldav.NewClient(ctx, e.logger, caldav.Options{
				Endpoint: e.cfg.CalDAV.Endpoint,
				Username: e.cfg.CalDAV.Username,
				Password: e.cfg.CalDAV.Password,
				Calendar: e.cfg.CalDAV.Calendar,
				Location: loc,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("failed to create caldav client: %v", err), 1)
			}

			push := func(ctx context.Context) (caldav.PushResult, error) {
				events, err := e.sched.Forward(ctx)
				if err != nil {
					return caldav.PushResult{}, err
				}
				return client.PushAll(ctx, events), nil
			}

			if spec := c.String("watch"); spec != "" {
				err := caldav.Watch(ctx, e.logger, spec, func(ctx context.Context) {
					if _, err := push(ctx); err != nil {
						e.logger.Error("Push cycle failed", "error", err)
					}
				})
				return commandError(err)
			}

			res, err := push(ctx)
			if err != nil {
				return commandError(err)
			}
			if len(res.Failed) > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d events failed to push", len(res.Failed), len(res.Failed)+res.Pushed), 1)
			}
			fmt.Fprintln(c.App.Writer, "OK")
			return nil
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			e.logger.Info("Starting Google authentication flow.")

			config, err := google.OAuthConfig(e.cfg.Google.ClientID, e.cfg.Google.ClientSecret)
			if err != nil {
				return cli.Exit(fmt.Sprintf("failed to get google oauth config: %v", err), 1)
			}

			out := c.App.Writer
			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Fprintf(out, "Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Fprint(out, "Enter Authorization Code: ")
			reader := bufio.NewReader(c.App.Reader)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, config, authCode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("unable to retrieve token from web: %v", err), 1)
			}

			fmt.Fprint(out, "Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			if accountName == "" {
				return cli.Exit("account name is required", 1)
			}

			tokenFile := google.TokenPath(tokenDir, accountName)
			if err := google.SaveToken(tokenFile, token); err != nil {
				return cli.Exit(fmt.Sprintf("failed to save token: %v", err), 1)
			}

			e.logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func importGoogleCommand() *cli.Command {
	return &cli.Command{
		Name:  "import_google",
		Usage: "Insert upcoming events from the configured Google calendars.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 7, Usage: "how many days ahead to import"},
			&cli.IntFlag{Name: "seats", Usage: "seats given to every imported event"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			loc, err := e.cfg.Location()
			if err != nil {
				return commandError(err)
			}
			if len(e.cfg.Google.CalendarIDs) == 0 {
				return cli.Exit("no google calendar ids configured, set GOOGLE_CALENDAR_IDS", 1)
			}

			accounts, err := google.TokenAccounts(tokenDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("could not find any google accounts, did you run auth command? %v", err), 1)
			}
			if len(accounts) == 0 {
				return cli.Exit("no google accounts found. Run the 'auth' command first", 1)
			}

			var events []models.Event
			var failed []error
			for _, acc := range accounts {
				client, err := google.NewClient(c.Context, e.logger, e.cfg.Google.ClientID, e.cfg.Google.ClientSecret,
					tokenDir, acc, loc, c.Int("seats"))
				if err != nil {
					return cli.Exit(fmt.Sprintf("failed to create google client for account %s: %v", acc, err), 1)
				}
				for _, calID := range e.cfg.Google.CalendarIDs {
					got, err := client.UpcomingEvents(c.Context, calID, c.Int("days"))
					if err != nil {
						e.logger.Warn("Could not read calendar.", "account", acc, "calendar", calID, "error", err)
						failed = append(failed, err)
						continue
					}
					events = append(events, got...)
				}
			}
			if len(events) == 0 && len(failed) > 0 {
				return commandError(errors.Join(failed...))
			}
			return insertImported(c, e, events)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web interface and JSON API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "listen address (default 127.0.0.1:8080)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			addr := e.cfg.Listen
			if c.IsSet("listen") {
				addr = c.String("listen")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := web.NewServer(e.logger, e.sched, e.cfg.BasicAuth)
			return commandError(server.ListenAndServe(ctx, addr))
		},
	}
}
