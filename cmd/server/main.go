package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avramidis/folio/internal/app"
	"github.com/avramidis/folio/internal/config"
	"github.com/avramidis/folio/internal/modules/prices"
	"github.com/avramidis/folio/internal/scheduler"
	"github.com/avramidis/folio/internal/server"
	"github.com/avramidis/folio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New(logger.Config{Level: "error", Pretty: true})
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Folio")

	application := app.New(cfg, log)
	if err := application.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if err := registerJobs(sched, application, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		App:     application,
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(sched *scheduler.Scheduler, application *app.App, cfg *config.Config) error {
	if err := sched.AddJob(cfg.Prices.RefreshCron, prices.NewRefreshJob(application.Prices)); err != nil {
		return err
	}
	return sched.AddJob(cfg.Prices.SnapshotCron, prices.NewSnapshotJob(application.Prices))
}
