package http

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"orcid/internal/app/auth"
	"orcid/internal/domain/models"

	"github.com/go-chi/cors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui"
	"github.com/swaggest/swgui/v5emb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

//go:embed swagger/swagger.json
var swaggerJSON []byte

type ProfileRequests interface {
	CreateProfileRequest(ctx context.Context, in models.CreateProfileRequestInput) (models.ProfileRequest, error)
	ProfileRequestForUser(ctx context.Context, userID int64) (models.ProfileRequest, error)
	SubmitForUser(ctx context.Context, userID int64) (models.ProfileRequest, bool, error)
	OrcidProfileForUser(ctx context.Context, userID int64) (string, error)
}

type Authenticator interface {
	Authenticate(r *http.Request) (*auth.Claims, error)
}

type Server struct {
	httpServer *http.Server
	grpcConn   *grpc.ClientConn
	grpcAddr   string
	port       int
	timeout    time.Duration
	log        *slog.Logger

	requests  ProfileRequests
	auth      Authenticator
	mux       *runtime.ServeMux
	marshaler runtime.Marshaler
}

func NewServer(
	grpcAddr string,
	port int,
	timeout time.Duration,
	requests ProfileRequests,
	authenticator Authenticator,
	log *slog.Logger,
) *Server {
	return &Server{
		grpcAddr:  grpcAddr,
		port:      port,
		timeout:   timeout,
		log:       log,
		requests:  requests,
		auth:      authenticator,
		marshaler: &runtime.JSONBuiltin{},
	}
}

// Handler builds the full HTTP handler: API routes, swagger UI and metrics.
func (s *Server) Handler(opts ...runtime.ServeMuxOption) (http.Handler, error) {
	s.mux = runtime.NewServeMux(opts...)

	routes := []struct {
		method, pattern string
		h               userHandler
	}{
		{http.MethodPost, "/v1/users/{user_id}/orcid-profile-request", s.createProfileRequest},
		{http.MethodGet, "/v1/users/{user_id}/orcid-profile-request", s.getProfileRequest},
		{http.MethodPost, "/v1/users/{user_id}/orcid-profile-request/run", s.runProfileRequest},
		{http.MethodGet, "/v1/users/{user_id}/orcid-profile", s.getOrcidProfile},
	}
	for _, rt := range routes {
		if err := s.mux.HandlePath(rt.method, rt.pattern, s.authorized(rt.h)); err != nil {
			return nil, fmt.Errorf("failed to register %s %s: %w", rt.method, rt.pattern, err)
		}
	}

	mainMux := http.NewServeMux()
	s.setupSwaggerUI(mainMux)
	mainMux.Handle("/metrics", promhttp.Handler())
	mainMux.Handle("/healthz", s.mux)
	mainMux.Handle("/v1/", s.mux)

	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	})(mainMux), nil
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	log := s.log.With(
		slog.String("op", op),
		slog.Int("port", s.port),
	)

	conn, err := grpc.NewClient(s.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("%s: dial grpc: %w", op, err)
	}
	s.grpcConn = conn

	handler, err := s.Handler(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      handler,
		ReadTimeout:  s.timeout,
		WriteTimeout: 2 * s.timeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("http server started", slog.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.grpcConn != nil {
		err = errors.Join(err, s.grpcConn.Close())
	}
	return err
}

func (s *Server) setupSwaggerUI(mux *http.ServeMux) {
	swaggerHandler := v5emb.NewHandlerWithConfig(swgui.Config{
		Title:       "ORCID Profile Requests API",
		SwaggerJSON: "/swagger/swagger.json",
		BasePath:    "/swagger/",
		ShowTopBar:  true,
	})

	mux.HandleFunc("/swagger/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeContent(w, r, "swagger.json", time.Time{}, bytes.NewReader(swaggerJSON))
	})

	mux.Handle("/swagger/", swaggerHandler)
	mux.Handle("/swagger", http.RedirectHandler("/swagger/", http.StatusFound))
}
