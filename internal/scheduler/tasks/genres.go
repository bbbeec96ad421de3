package tasks

import (
	"context"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/scheduler"
)

const GenreRefreshTaskID = "genre-refresh"

// GenreRefresher reloads the genre dropdown from upstream.
type GenreRefresher interface {
	IsConfigured() bool
	RefreshGenres(ctx context.Context) ([]catalog.Genre, error)
}

// RegisterGenreRefreshTask reloads the movie and series genre lists. It
// runs once at startup so the browse filters are populated early.
func RegisterGenreRefreshTask(sched *scheduler.Scheduler, refresher GenreRefresher, cron string) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          GenreRefreshTaskID,
		Name:        "Genre Refresh",
		Description: "Reloads the movie and TV genre lists used by the browse filters",
		Cron:        cron,
		RunOnStart:  true,
		Func: func(ctx context.Context) error {
			if !refresher.IsConfigured() {
				return nil
			}
			_, err := refresher.RefreshGenres(ctx)
			return err
		},
	})
}
