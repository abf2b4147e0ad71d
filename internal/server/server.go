package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ctrlhora/ctrlhora-be/internal/attendance"
	"github.com/ctrlhora/ctrlhora-be/internal/auth"
	"github.com/ctrlhora/ctrlhora-be/internal/config"
	"github.com/ctrlhora/ctrlhora-be/internal/directory"
	"github.com/ctrlhora/ctrlhora-be/internal/http/handlers"
	"github.com/ctrlhora/ctrlhora-be/internal/middleware"
	"github.com/ctrlhora/ctrlhora-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, logger zerolog.Logger) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewHandler(cfg, store, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// NewHandler builds the full handler chain over store.
func NewHandler(cfg config.Config, store storage.Store, logger zerolog.Logger) http.Handler {
	passwords := auth.NewPasswords(cfg.BcryptCost)
	sessions := auth.NewSessions(store, passwords)
	registrations := auth.NewRegistrationTokens(cfg.RegistrationSecret, cfg.RegistrationIssuer, cfg.RegistrationTTL)
	ledger := attendance.NewLedger(store)
	dir := directory.New(store, passwords, registrations, cfg.BootstrapEnabled)

	protect := func(next http.Handler) http.Handler {
		return middleware.RequireToken(sessions, next)
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), store).Register(mux)
	handlers.NewAuthHandler(sessions).Register(mux)
	handlers.NewAttendanceHandler(ledger).Register(mux, protect)
	handlers.NewUsersHandler(dir).Register(mux, protect)

	return middleware.Logging(logger, middleware.CORS(cfg.CORSOrigins, mux))
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
