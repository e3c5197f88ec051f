package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/accountd/authserver/config"
	"github.com/accountd/authserver/internal/db"
	"github.com/accountd/authserver/internal/handlers"
	"github.com/accountd/authserver/internal/mailer"
	"github.com/accountd/authserver/internal/mq"
	"github.com/accountd/authserver/internal/services"
	"github.com/accountd/authserver/internal/store"
	"github.com/accountd/authserver/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Backend
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "server").Logger()

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	blacklistRepo := store.NewBlacklistRepository(dbConn)

	userService := services.NewUserService(userRepo)
	blacklistService := services.NewBlacklistService(blacklistRepo)

	issuer := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	resets := token.NewResetGenerator(cfg.JWT.Secret, cfg.JWT.ResetTTL)

	outbound, broker, err := buildMailer(ctx, cfg, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(handlers.AuthHandlerConfig{
		Users:       userService,
		Blacklist:   blacklistService,
		Tokens:      issuer,
		Resets:      resets,
		Mailer:      outbound,
		AppURL:      cfg.AppURL,
		FrontendURL: cfg.FrontendURL,
		Logger:      logger,
	})

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// buildMailer selects the outbound email transport. SMTP sends directly;
// broker backends publish jobs for the emailworker command. The returned
// broker is non-nil only for broker backends and must be closed on shutdown.
func buildMailer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (mailer.Mailer, mq.Backend, error) {
	if cfg.Email.Backend == config.EmailBackendSMTP {
		smtp, err := mailer.NewSMTPMailer(cfg.SMTP, logger)
		if err != nil {
			return nil, nil, err
		}
		return smtp, nil, nil
	}

	broker, err := mq.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return mailer.NewQueueMailer(broker, cfg.Email.Queue, logger), broker, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}
