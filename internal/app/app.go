package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/auth"
	"github.com/vovakirdan/timetable-server/internal/auth/provider"
	"github.com/vovakirdan/timetable-server/internal/config"
	"github.com/vovakirdan/timetable-server/internal/core"
	"github.com/vovakirdan/timetable-server/internal/service/timetables"
	"github.com/vovakirdan/timetable-server/internal/store"
	"github.com/vovakirdan/timetable-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/timetable-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	scope, err := core.ParseScope(cfg.BroadcastScope)
	if err != nil {
		return nil, err
	}

	st, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if version, err := st.SchemaVersion(ctx); err == nil {
		logger.Info().Str("db_path", cfg.DatabasePath).Int64("schema_version", version).Msg("database initialized")
	}

	if cfg.JWTSecret == config.DevJWTSecret {
		logger.Warn().Msg("using the development jwt secret; set TIMETABLE_JWT_SECRET")
	}
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}

	var idp auth.IdentityProvider
	if cfg.Provider.ClientID != "" {
		idp = provider.New(cfg.Provider, nil)
	} else {
		logger.Info().Msg("external login disabled: provider.client_id is empty")
	}
	authService := auth.NewService(st, jwtConfig, idp)

	hub := core.NewHub(scope, logger)

	var notifier timetables.Notifier
	if cfg.NotifyChanges {
		notifier = hub
	}
	ttService := timetables.New(st, notifier, logger)

	server := transporthttp.NewServer(hub, authService, ttService, st, cfg, logger)

	logger.Info().
		Str("broadcast_scope", scope.String()).
		Bool("notify_changes", cfg.NotifyChanges).
		Msg("hub configured")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.hub.Shutdown()
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Hijacked websocket connections are not tracked by Shutdown.
		a.hub.Shutdown()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
