package caldav

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Watch runs fn once right away and then on every tick of the cron schedule
// spec, until ctx is done. Runs never overlap.
func Watch(ctx context.Context, logger *slog.Logger, spec string, fn func(context.Context)) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { fn(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule '%s': %w", spec, err)
	}

	logger.Info("Starting watcher.", "schedule", spec)
	fn(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Watcher stopped.")
	return nil
}
