package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/inboxlink/inboxlink/internal/account"
	"github.com/inboxlink/inboxlink/internal/gmail"
	"github.com/inboxlink/inboxlink/internal/instrumentation"
	"github.com/inboxlink/inboxlink/internal/logging"
)

const (
	// DefaultAddr is the default bind address for the API server.
	DefaultAddr = ":8080"

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	defaultReadHeaderTimeout = 10 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// Linker drives the account linking flow. Implemented by flow.Orchestrator.
type Linker interface {
	Initiate(ctx context.Context, userID string) (string, error)
	HandleCallback(ctx context.Context, state, code string) (*account.Account, error)
	Unlink(ctx context.Context, accountID string) error
}

// TokenGuard returns accounts with fresh access tokens. Implemented by
// flow.Guard.
type TokenGuard interface {
	FreshByID(ctx context.Context, accountID string) (*account.Account, error)
}

// MailClient is the mailbox surface the message endpoint needs.
type MailClient interface {
	ListMessages(ctx context.Context, query string, maxResults int64, pageToken string) (*gmail.ListPage, error)
	FetchBatch(ctx context.Context, messageIDs []string) ([]*gmail.Message, error)
}

// MailClientFactory builds a mail client for a fresh access token. Factories
// are per request so tokens never outlive the request that refreshed them.
type MailClientFactory func(ctx context.Context, accessToken string) (MailClient, error)

// Config holds the API server configuration.
type Config struct {
	Addr string
}

// Server is the application HTTP server.
type Server struct {
	httpServer *http.Server
	linker     Linker
	guard      TokenGuard
	mailClient MailClientFactory
	verifier   IdentityVerifier
	health     *HealthChecker
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// New assembles the API server and its routes.
func New(
	cfg Config,
	linker Linker,
	guard TokenGuard,
	mailClient MailClientFactory,
	verifier IdentityVerifier,
	health *HealthChecker,
	metrics *instrumentation.Metrics,
	logger *slog.Logger,
) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}

	s := &Server{
		linker:     linker,
		guard:      guard,
		mailClient: mailClient,
		verifier:   verifier,
		health:     health,
		metrics:    metrics,
		logger:     logging.WithComponent(logger, "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/google/initiate", s.requireAuth(s.handleInitiate))
	mux.HandleFunc("GET /api/auth/google/callback", s.handleCallback)
	mux.HandleFunc("GET /api/accounts/{accountID}/messages", s.requireAuth(s.handleListMessages))
	mux.HandleFunc("DELETE /api/accounts/{accountID}", s.requireAuth(s.handleUnlink))
	if health != nil {
		health.RegisterEndpoints(mux)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.instrument(mux),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.SetReady(false)
	}
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// instrument records request count and duration per route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		// The route pattern, not the raw path, keeps label cardinality
		// bounded.
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, pattern, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
