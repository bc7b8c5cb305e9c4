package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"orcid/internal/app/auth"
	grpcapp "orcid/internal/app/grpc"
	"orcid/internal/config"
	httpserver "orcid/internal/http"
	"orcid/internal/lib/events"
	"orcid/internal/lib/logger/sl"
	"orcid/internal/orcid"
	"orcid/internal/orcid/remote"
	"orcid/internal/services/profilerequest"
	"orcid/internal/storage/postgres"
)

type publisher interface {
	profilerequest.EventPublisher
	Close() error
}

type App struct {
	GRPCServer *grpcapp.App
	HTTPServer *httpserver.Server
	Storage    *postgres.Storage
	Events     publisher
	log        *slog.Logger
}

// New panics when the database is unreachable; it is only called on startup.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) *App {
	storage, err := postgres.New(ctx, cfg.DSN, log)
	if err != nil {
		panic(err)
	}

	submitter := newSubmitter(log, cfg.ORCID)

	var pub publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	}

	requests := profilerequest.New(log, storage, storage, storage, submitter,
		profilerequest.WithEventPublisher(pub),
	)

	grpcApp := grpcapp.New(log, cfg.GRPC.Port)
	grpcApp.SetServing(true)

	grpcAddr := fmt.Sprintf("localhost:%d", cfg.GRPC.Port)
	httpServer := httpserver.NewServer(
		grpcAddr,
		cfg.HTTPServer.Port,
		cfg.HTTPServer.Timeout,
		requests,
		auth.NewJWTValidator(cfg.JWT.Secret),
		log,
	)

	return &App{
		GRPCServer: grpcApp,
		HTTPServer: httpServer,
		Storage:    storage,
		Events:     pub,
		log:        log,
	}
}

// newSubmitter builds the ORCID gateway. Missing ORCID credentials do not stop the
// service; every submission then reports the missing setting instead.
func newSubmitter(log *slog.Logger, cfg config.ORCIDConfig) profilerequest.Submitter {
	svc, err := remote.NewProfileCreationService(log, orcid.NewProvider(cfg), &http.Client{Timeout: cfg.Timeout})
	if err == nil {
		return svc
	}

	var cfgErr *orcid.ConfigurationError
	if !errors.As(err, &cfgErr) {
		panic(err)
	}

	log.Warn("orcid client is not configured, submissions will fail", sl.Err(err))
	return profilerequest.SubmitterFunc(func(context.Context, string) (string, error) {
		return "", err
	})
}

func (a *App) CloseStorage() error {
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			a.log.Error("failed to close event publisher", sl.Err(err))
		}
	}

	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return err
		}
		a.log.Info("closed database connection")
	}
	return nil
}
