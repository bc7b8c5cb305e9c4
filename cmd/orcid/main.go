package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orcid/internal/app"
	"orcid/internal/config"
	"orcid/internal/lib/logger/sl"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn("Error loading .env file")
	}
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	application := app.New(ctx, log, cfg)

	grp, grpCtx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		log.Info("starting gRPC server", slog.Int("port", cfg.GRPC.Port))

		errChan := make(chan error, 1)
		go func() {
			errChan <- application.GRPCServer.Run()
		}()

		select {
		case <-grpCtx.Done():
			application.GRPCServer.Stop()
			return grpCtx.Err()
		case err := <-errChan:
			return err
		}
	})

	grp.Go(func() error {
		log.Info("starting HTTP server", slog.Int("port", cfg.HTTPServer.Port))

		errChan := make(chan error, 1)
		go func() {
			errChan <- application.HTTPServer.Start()
		}()

		select {
		case <-grpCtx.Done():
		case err := <-errChan:
			if err != nil {
				return err
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		return application.HTTPServer.Stop(shutdownCtx)
	})

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", sl.Err(err))
	}

	if err := application.CloseStorage(); err != nil {
		log.Error("failed to close storage", sl.Err(err))
	}
	log.Info("Gracefully stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal, envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
