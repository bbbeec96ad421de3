package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/reelscout/reelscout/internal/api"
	"github.com/reelscout/reelscout/internal/api/ratelimit"
	"github.com/reelscout/reelscout/internal/auth"
	"github.com/reelscout/reelscout/internal/config"
	"github.com/reelscout/reelscout/internal/contentfilter"
	"github.com/reelscout/reelscout/internal/database"
	"github.com/reelscout/reelscout/internal/discovery"
	"github.com/reelscout/reelscout/internal/logger"
	"github.com/reelscout/reelscout/internal/metadata"
	"github.com/reelscout/reelscout/internal/metadata/tmdb"
	"github.com/reelscout/reelscout/internal/scheduler"
	"github.com/reelscout/reelscout/internal/scheduler/tasks"
	"github.com/reelscout/reelscout/internal/startup"
	"github.com/reelscout/reelscout/internal/watchlist"
	"github.com/reelscout/reelscout/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.FromConfig(cfg.Logging))
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting ReelScout")

	if err := run(cfg, log.Logger); err != nil {
		log.Error().Err(err).Msg("exiting")
		log.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retryCfg := startup.DefaultRetryConfig()

	var db *database.DB
	err := startup.WithRetry(ctx, "database connection", retryCfg, func() error {
		var err error
		db, err = database.Open(ctx, cfg.Database)
		return err
	}, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	log.Info().Str("driver", cfg.Database.Driver).Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	blocklist, err := contentfilter.Load(afero.NewOsFs(), cfg.Content.BlocklistPath, cfg.Content.Blocklist)
	if err != nil {
		return fmt.Errorf("load blocklist: %w", err)
	}
	log.Info().Int("terms", blocklist.Len()).Msg("content blocklist loaded")

	var memCache *metadata.MemoryCache
	var responseCache metadata.ResponseCache
	switch cfg.Cache.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		defer client.Close()

		rc := metadata.NewRedisCache(client, cfg.Cache.TTL, "reelscout:", log)
		err := startup.WithRetry(ctx, "redis connection", retryCfg, func() error {
			return rc.Ping(ctx)
		}, log)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		responseCache = rc
	default:
		memCache = metadata.NewMemoryCache(metadata.CacheConfig{TTL: cfg.Cache.TTL, MaxItems: cfg.Cache.MaxItems})
		responseCache = memCache
	}

	tmdbClient := tmdb.NewClient(cfg.Metadata.TMDB, log)
	if !tmdbClient.IsConfigured() {
		log.Warn().Msg("no TMDB API key configured, browsing will report the catalog as unavailable")
	}
	meta := metadata.NewService(tmdbClient, responseCache, blocklist, log)

	authService, err := auth.NewService(db, cfg.Auth, log)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	wl := watchlist.NewService(watchlist.NewSQLRepository(db), log)
	wl.SetPublisher(hub)

	browse := discovery.NewRegistry(cfg.Cache.MaxVisitors, 0)
	loginLimiter := ratelimit.NewLoginLimiter()

	var ipLimiter *ratelimit.IPLimiter
	if cfg.RateLimit.Enabled {
		ipLimiter = ratelimit.NewIPLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	sched, err := scheduler.New(log)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	if err := tasks.RegisterGenreRefreshTask(sched, meta, cfg.Scheduler.GenreRefreshCron); err != nil {
		return fmt.Errorf("register genre refresh: %w", err)
	}

	cleaners := []tasks.Cleaner{loginLimiter}
	if ipLimiter != nil {
		cleaners = append(cleaners, ipLimiter)
	}
	if memCache != nil {
		cleaners = append(cleaners, tasks.CleanerFunc(func() {
			if n := memCache.Prune(); n > 0 {
				log.Debug().Int("entries", n).Msg("pruned expired responses")
			}
		}))
	}
	if err := tasks.RegisterCleanupTask(sched, cfg.Scheduler.CleanupCron, log, cleaners...); err != nil {
		return fmt.Errorf("register cleanup: %w", err)
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Warn().Err(err).Msg("scheduler did not stop cleanly")
		}
	}()

	server, err := api.NewServer(api.Deps{
		Config:       cfg,
		Metadata:     meta,
		Blocklist:    blocklist,
		Auth:         authService,
		Watchlist:    wl,
		Hub:          hub,
		Browse:       browse,
		Scheduler:    sched,
		IPLimiter:    ipLimiter,
		LoginLimiter: loginLimiter,
	}, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Address())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
