package cmd

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

	"github.com/inboxlink/inboxlink/internal/account"
	"github.com/inboxlink/inboxlink/internal/config"
	"github.com/inboxlink/inboxlink/internal/flow"
	"github.com/inboxlink/inboxlink/internal/gmail"
	"github.com/inboxlink/inboxlink/internal/google"
	"github.com/inboxlink/inboxlink/internal/instrumentation"
	"github.com/inboxlink/inboxlink/internal/logging"
	"github.com/inboxlink/inboxlink/internal/server"
	"github.com/inboxlink/inboxlink/internal/statestore"
)

func newServeCmd() *cobra.Command {
	var (
		httpAddr    string
		metricsAddr string
		debug       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API and metrics servers",
		Long: `Start the HTTP API server carrying the account linking flow, the message
retrieval endpoint and the health probes, plus a Prometheus metrics server
on a dedicated port.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.HTTPAddr = httpAddr
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			if debug {
				cfg.Debug = true
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "bind address for the API server (default :8080)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "bind address for the metrics server (default :9090)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stderr, cfg.Debug)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	// State store: memory for single instances, Redis when callbacks may
	// land on any replica.
	readinessChecks := map[string]server.ReadinessCheck{}
	var states statestore.Store
	switch cfg.StateStore.Type {
	case config.StateStoreRedis:
		redisStore, err := statestore.NewRedisStore(ctx, statestore.RedisOptions{
			Addr:     cfg.StateStore.Redis.Addr,
			Password: cfg.StateStore.Redis.Password,
			DB:       cfg.StateStore.Redis.DB,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis state store: %w", err)
		}
		states = redisStore
		readinessChecks["state_store"] = redisStore.Ping
	case config.StateStoreMemory:
		states = statestore.NewMemoryStore(logger)
	default:
		return fmt.Errorf("unknown state store type %q", cfg.StateStore.Type)
	}
	defer func() { _ = states.Close() }()

	var accounts account.Store
	if cfg.Database.Path != "" {
		accounts, err = account.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open account database: %w", err)
		}
	} else {
		logger.Warn("no database path configured, using in-memory account store")
		accounts = account.NewMemoryStore()
	}
	defer func() { _ = accounts.Close() }()

	oauthConf, err := google.NewOAuthConfig(google.ClientConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes:       cfg.Google.Scopes,
	})
	if err != nil {
		return err
	}

	exchanger := google.NewTokenService(oauthConf)
	orchestrator := flow.NewOrchestrator(states, accounts, oauthConf, exchanger,
		google.NewProfileFetcher(), cfg.StateStore.TTL, logger)
	guard := flow.NewGuard(accounts, exchanger, provider.Metrics(), logger)

	mailClient := func(ctx context.Context, accessToken string) (server.MailClient, error) {
		return gmail.NewClient(ctx, accessToken, logger)
	}

	health := server.NewHealthChecker(readinessChecks)
	apiServer := server.New(
		server.Config{Addr: cfg.HTTPAddr},
		orchestrator,
		guard,
		mailClient,
		server.NewGoogleIDTokenVerifier(cfg.Google.ClientID),
		health,
		provider.Metrics(),
		logger,
	)

	errCh := make(chan error, 2)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	var metricsServer *server.MetricsServer
	if provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(cfg.MetricsAddr, provider)
		if err != nil {
			return err
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server failed: %w", err)
			}
		}()
	}

	logger.Info("inboxlink started",
		"version", version,
		"http_addr", cfg.HTTPAddr,
		"state_store", cfg.StateStore.Type,
	)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", logging.Err(err))
		}
	}

	return nil
}
