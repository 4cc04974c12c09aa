package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/career-predictor/internal/cache"
	"github.com/jonathan/career-predictor/internal/db"
	"github.com/jonathan/career-predictor/internal/jobs"
	"github.com/jonathan/career-predictor/internal/prediction"
	"github.com/jonathan/career-predictor/internal/replacement"
	"github.com/jonathan/career-predictor/internal/server"
	"github.com/jonathan/career-predictor/internal/server/ratelimit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that serves role predictions, prediction history and dataset administration.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Auth.Validate(); err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store server.HistoryStore
	if cfg.Database.Enabled() {
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		store = database
	} else {
		log.Warn("database not configured, prediction history disabled")
	}

	predictOpts := []prediction.Option{prediction.WithLogger(log)}
	if cfg.Redis.Enabled() {
		predictionCache, err := cache.New(ctx, cache.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return err
		}
		defer func() { _ = predictionCache.Close() }()
		predictOpts = append(predictOpts, prediction.WithCache(predictionCache))
	}

	trainer := newTrainingPipeline(cfg, log)
	if err := trainer.Bootstrap(ctx); err != nil {
		// An unusable dataset leaves the service untrained; an upload can fix it.
		log.Error("initial training failed", zap.Error(err))
	}

	predictor := prediction.NewService(trainer.Registry(), predictOpts...)
	uploads := replacement.New(replacement.Options{
		ActivePath: cfg.Dataset.Path,
		Schema:     cfg.Dataset.Schema(),
		MinRows:    cfg.Dataset.MinRows,
		MaxBytes:   cfg.Dataset.MaxUploadBytes,
		Logger:     log,
	})
	queue := jobs.NewQueue(trainer, jobs.Options{
		BufferSize:  cfg.Jobs.BufferSize,
		MaxRetained: cfg.Jobs.MaxRetained,
		Logger:      log,
	})

	deps := server.Deps{
		Predictor: predictor,
		Model:     trainer,
		Uploader:  uploads,
		Jobs:      queue,
		Store:     store,
		Tokens:    server.NewJWTService(cfg.Auth).AsTokenValidator(),
		RateLimit: ratelimit.FromConfig(cfg.RateLimit),
		Logger:    log,
	}

	srv, err := server.New(server.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigin:      cfg.Server.CORSOrigin,
		MaxUploadBytes:  cfg.Dataset.MaxUploadBytes,

		ValidateResponses: cfg.Server.ValidateResponses,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := queue.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer queue.Close()
		return srv.Run(gctx)
	})
	return g.Wait()
}
