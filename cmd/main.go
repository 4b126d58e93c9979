package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"eventsched/internal/config"
	"eventsched/internal/scheduler"
	"eventsched/internal/store"
)

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "eventsched",
		Usage:     "Keep a small file of events and share it with other calendars.",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", EnvVars: []string{"EVENTSCHED_CONFIG"}, Usage: "YAML configuration file"},
			&cli.StringFlag{Name: "file", Usage: "event file (default events.log)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "unique-ids", Usage: "retry id generation until the id is unused"},
		},
		Commands: []*cli.Command{
			insertCommand(),
			searchCommand(),
			modifyCommand(),
			deleteCommand(),
			displayCommand("display_forward", "Print events in insertion order.", (*scheduler.Scheduler).DisplayForward),
			displayCommand("display_reverse", "Print events in reverse insertion order.", (*scheduler.Scheduler).DisplayReverse),
			generateCommand(),
			countCommand(),
			exportICSCommand(),
			importICSCommand(),
			downloadCSVCommand(),
			pushCommand(),
			authCommand(),
			importGoogleCommand(),
			serveCommand(),
		},
	}
}

// env is what every command needs once flags and configuration are resolved.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	sched  *scheduler.Scheduler
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	if c.IsSet("file") {
		cfg.File = c.String("file")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("unique-ids") {
		cfg.UniqueIDs = c.Bool("unique-ids")
	}
	cfg.Normalize()

	logger := setupLogger(c.App.ErrWriter, cfg.LogLevel)
	sched := scheduler.NewScheduler(logger, cfg.File, store.WithUniqueIDs(cfg.UniqueIDs))
	return &env{cfg: cfg, logger: logger, sched: sched}, nil
}

func setupLogger(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}
