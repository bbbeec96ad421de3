package tasks

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/reelscout/reelscout/internal/scheduler"
)

const CleanupTaskID = "cleanup"

// Cleaner drops stale in-memory state.
type Cleaner interface {
	Cleanup()
}

// CleanerFunc adapts a function to Cleaner.
type CleanerFunc func()

func (f CleanerFunc) Cleanup() { f() }

// RegisterCleanupTask periodically runs every cleaner: rate limiter
// buckets, login lockouts and expired upstream responses.
func RegisterCleanupTask(sched *scheduler.Scheduler, cron string, logger zerolog.Logger, cleaners ...Cleaner) error {
	logger = logger.With().Str("task", CleanupTaskID).Logger()

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CleanupTaskID,
		Name:        "Cleanup",
		Description: "Drops idle rate limiter entries, expired lockouts and stale cached responses",
		Cron:        cron,
		Func: func(ctx context.Context) error {
			for _, c := range cleaners {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.Cleanup()
			}
			logger.Debug().Int("cleaners", len(cleaners)).Msg("cleanup finished")
			return nil
		},
	})
}
