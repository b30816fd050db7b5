package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/slangflash/internal/api"
	"github.com/vytor/slangflash/internal/config"
	"github.com/vytor/slangflash/internal/db"
	"github.com/vytor/slangflash/internal/flashcard"
	"github.com/vytor/slangflash/internal/logger"
	"github.com/vytor/slangflash/internal/repository/sqlite"
	"github.com/vytor/slangflash/internal/services"
	"github.com/vytor/slangflash/internal/session"
	"github.com/vytor/slangflash/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slangflash",
		Short:         "Spaced-repetition review scheduler for slang flashcards",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			database, err := db.Open(cfg.DBPath)
			if err != nil {
				log.Error("failed to migrate database: %v", err)
				return err
			}
			return database.Close()
		},
	})
	return root
}

func setup(cmd *cobra.Command) (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		return cfg, nil, err
	}

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(cfg.LogColors),
	)
	logger.SetDefault(log)
	return cfg, log, nil
}

func runServe(cmd *cobra.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("===========================================")
	log.Info("SlangFlash Server Starting")
	log.Info("===========================================")
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("rate_limit_per_minute=%d", cfg.RateLimitPerMinute)
	log.Debug("request_timeout=%s", cfg.RequestTimeout)
	log.Debug("session_ttl=%s", cfg.SessionTTL)
	log.Debug("session_sweep_interval=%s", cfg.SessionSweepInterval)
	log.Debug("worker_count=%d", cfg.WorkerCount)
	log.Debug("worker_queue_size=%d", cfg.WorkerQueueSize)
	log.Debug("review_conflict_retries=%d", cfg.ReviewConflictRetries)
	log.Debug("timezone=%s", cfg.Timezone)

	loc, err := cfg.Location()
	if err != nil {
		log.Error("failed to load timezone: %v", err)
		return err
	}
	scheduler := flashcard.NewScheduler(flashcard.Params{
		InitialEase:     cfg.InitialEase,
		MinEase:         cfg.MinEase,
		FailPenalty:     cfg.FailPenalty,
		MaxIntervalDays: cfg.MaxIntervalDays,
	}, loc)
	log.Info("scheduler: %s", scheduler.Params())

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		return err
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	repo := sqlite.NewFlashcardRepository(database.DB)
	sessions := session.NewManager(cfg.SessionTTL)
	pool := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize)

	srv := &api.Server{
		FlashcardService: services.NewFlashcardService(repo, scheduler, sessions, cfg.ReviewConflictRetries),
		SessionService:   services.NewSessionService(repo, sessions),
		StatsService:     services.NewStatsService(repo),
		DB:               database,
		RequestTimeout:   cfg.RequestTimeout,
		RateLimit:        cfg.RateLimitPerMinute,
	}

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool.Start(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		pool.Every(gctx, cfg.SessionSweepInterval, session.SweepJob{Manager: sessions})
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("initiating graceful shutdown")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Debug("shutting down HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error: %v", err)
		}
		return nil
	})

	err = g.Wait()

	// Wait for workers to finish
	log.Debug("stopping worker pool")
	pool.Stop()

	if err != nil {
		log.Error("server error: %v", err)
	}
	log.Info("===========================================")
	log.Info("SlangFlash Server Stopped")
	log.Info("===========================================")
	return err
}
