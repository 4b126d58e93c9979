package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"eventsched/internal/models"
	"eventsched/internal/scheduler"
	"eventsched/internal/store"
)

func usageError(c *cli.Context, want int) error {
	if c.NArg() == want {
		return nil
	}
	return cli.Exit(fmt.Sprintf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage), 1)
}

func intArg(c *cli.Context, i int, name string) (int, error) {
	n, err := strconv.Atoi(c.Args().Get(i))
	if err != nil {
		return 0, cli.Exit(fmt.Sprintf("%s must be a whole number, got %q", name, c.Args().Get(i)), 1)
	}
	return n, nil
}

// commandError turns an operation error into an exit status.
func commandError(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(err.Error(), 1)
}

func insertCommand() *cli.Command {
	return &cli.Command{
		Name:      "insert",
		Usage:     "Add an event and print its id.",
		ArgsUsage: "<name> <date> <time> <seats>",
		Action: func(c *cli.Context) error {
			if err := usageError(c, 4); err != nil {
				return err
			}
			seats, err := intArg(c, 3, "seats")
			if err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}

			args := c.Args()
			id, err := e.sched.Insert(c.Context, args.Get(0), args.Get(1), args.Get(2), seats)
			if err != nil {
				return commandError(err)
			}
			fmt.Fprintln(c.App.Writer, id)
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Print the event with the given id, or NOTFOUND.",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if err := usageError(c, 1); err != nil {
				return err
			}
			id, err := intArg(c, 0, "id")
			if err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}

			event, err := e.sched.Search(c.Context, id)
			switch {
			case errors.Is(err, store.ErrNotFound):
				fmt.Fprintln(c.App.Writer, "NOTFOUND")
			case err != nil:
				return commandError(err)
			default:
				fmt.Fprintln(c.App.Writer, event)
			}
			return nil
		},
	}
}

func modifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "modify",
		Usage:     "Change an event. Empty text or seats <= 0 leave a field unchanged.",
		ArgsUsage: "<id> <name> <date> <time> <seats>",
		Action: func(c *cli.Context) error {
			if err := usageError(c, 5); err != nil {
				return err
			}
			id, err := intArg(c, 0, "id")
			if err != nil {
				return err
			}
			seats, err := intArg(c, 4, "seats")
			if err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}

			args := c.Args()
			u := models.UpdateFromSentinels(args.Get(1), args.Get(2), args.Get(3), seats)
			_, err = e.sched.Modify(c.Context, id, u)
			return printStatus(c, err)
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Remove the event with the given id.",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if err := usageError(c, 1); err != nil {
				return err
			}
			id, err := intArg(c, 0, "id")
			if err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			return printStatus(c, e.sched.Delete(c.Context, id))
		},
	}
}

// printStatus prints OK, or FAIL when the event does not exist.
func printStatus(c *cli.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(c.App.Writer, "FAIL")
	case err != nil:
		return commandError(err)
	default:
		fmt.Fprintln(c.App.Writer, "OK")
	}
	return nil
}

func displayCommand(name, usage string, display func(*scheduler.Scheduler, context.Context) ([]string, error)) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(c *cli.Context) error {
			if err := usageError(c, 0); err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}

			lines, err := display(e.sched, c.Context)
			if err != nil {
				return commandError(err)
			}
			for _, line := range lines {
				fmt.Fprintln(c.App.Writer, line)
			}
			return nil
		},
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Append n random events.",
		ArgsUsage: "<n>",
		Action: func(c *cli.Context) error {
			if err := usageError(c, 1); err != nil {
				return err
			}
			n, err := intArg(c, 0, "n")
			if err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}

			if _, err := e.sched.Generate(c.Context, n); err != nil {
				return commandError(err)
			}
			fmt.Fprintln(c.App.Writer, "OK")
			return nil
		},
	}
}

func countCommand() *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Print the number of events.",
		Action: func(c *cli.Context) error {
			if err := usageError(c, 0); err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}

			n, err := e.sched.Count(c.Context)
			if err != nil {
				return commandError(err)
			}
			fmt.Fprintln(c.App.Writer, n)
			return nil
		},
	}
}
