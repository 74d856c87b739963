// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/collab"
	"github.com/starford/othala/internal/configwatch"
	"github.com/starford/othala/internal/guard"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/registrar"
	"github.com/starford/othala/internal/reward"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/store"
	pkgconfig "github.com/starford/othala/pkg/config"
)

// services bundles the wired application components.
type services struct {
	store     *store.DB
	broker    *sse.Broker
	registrar *registrar.Service
	rewards   *reward.Service
}

func (s *services) Close() {
	s.broker.Close()
	_ = s.store.Close()
}

// buildServices opens the store and wires the collaborator, reward, and
// orchestration layers from cfg.
func buildServices(cfg *Config) (*services, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	maxID, err := db.MaxInternalID()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("seed minter: %w", err)
	}

	// Only the in-process collaborators are wired today; config validation
	// rejects anything else.
	minter := collab.NewLocalMinter(maxID)
	registry := collab.NewLocalRegistry()
	attacher := collab.NewLocalAttacher()

	policy, err := reward.NewPolicy(cfg.Rewards.PerEventReward, cfg.Rewards.MinReward, cfg.Rewards.MaxReward)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("reward policy: %w", err)
	}

	broker := sse.NewBroker(2 * time.Second)
	g := guard.New()

	rewards := reward.NewService(db, broker, g, policy,
		cfg.Rewards.MaxSupply, cfg.Rewards.FundingAccount,
		cfg.Rewards.OwnerAccount, cfg.Rewards.DistributorAccount)

	reg := registrar.NewService(db, minter, registry, attacher, g, broker, rewards, registrar.Settings{
		ChainID:         cfg.Registry.ChainID,
		Contract:        cfg.Registry.Contract,
		LicenseTemplate: cfg.Registry.LicenseTemplate,
		LicenseTermsID:  cfg.Registry.LicenseTermsID,
	})

	return &services{store: db, broker: broker, registrar: reg, rewards: rewards}, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("chain_id", cfg.Registry.ChainID),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svcs, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svcs.Close()

	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svcs.registrar, svcs.rewards).ServeStdio()
	}

	// Build API router.
	apiRouter := api.NewRouter(svcs.registrar, svcs.rewards, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(svcs.broker.ServeHTTP))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Hot-reload the rewards section when the config file changes.
	if app.configPath != "" {
		configPath := app.configPath
		g.Go(func() error {
			return configwatch.Watch(gCtx, configPath, logger, func() {
				next := NewDefaultConfig()
				if err := pkgconfig.Load(configPath, next); err != nil {
					logger.Warn("config reload rejected", slog.String("error", err.Error()))
					return
				}
				if err := svcs.rewards.ApplyPerEventReward(next.Rewards.PerEventReward); err != nil {
					logger.Warn("config reload rejected", slog.String("error", err.Error()))
					return
				}
				logger.Info("reward policy reloaded",
					slog.Uint64("per_event_reward", next.Rewards.PerEventReward))
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
