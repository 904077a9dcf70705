package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/auth"
	"github.com/vovakirdan/livetrigger/internal/config"
	"github.com/vovakirdan/livetrigger/internal/devices"
	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/gateway"
	"github.com/vovakirdan/livetrigger/internal/livestream"
	"github.com/vovakirdan/livetrigger/internal/metrics"
	"github.com/vovakirdan/livetrigger/internal/notify"
	"github.com/vovakirdan/livetrigger/internal/realtime"
	"github.com/vovakirdan/livetrigger/internal/settings"
	"github.com/vovakirdan/livetrigger/internal/status"
	"github.com/vovakirdan/livetrigger/internal/store"
	"github.com/vovakirdan/livetrigger/internal/store/sqlite"
	"github.com/vovakirdan/livetrigger/internal/theme"
	transporthttp "github.com/vovakirdan/livetrigger/internal/transport/http"
)

// App wires the client stores, the realtime manager and the dashboard.
type App struct {
	Tokens        *auth.TokenStore
	Auth          *auth.Service
	API           *gateway.Client
	Navigator     *gateway.RouteNavigator
	Devices       *devices.Store
	Settings      *settings.Store
	Live          *livestream.Session
	Events        *events.Log
	Status        *status.Store
	Realtime      *realtime.Manager
	Theme         *theme.Store
	Notifications *notify.Queue
	Metrics       *metrics.Registry

	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// ReconnectPolicy converts the configured reconnect section.
func ReconnectPolicy(c config.ReconnectConfig) realtime.Config {
	return realtime.Config{
		MaxRetries:       c.MaxRetries,
		InitialDelay:     c.InitialDelay,
		MaxDelay:         c.MaxDelay,
		Multiplier:       c.Multiplier,
		Jitter:           c.Jitter,
		HandshakeTimeout: c.HandshakeTimeout,
		RestorePreferred: c.RestorePreferred,
	}
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	st, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Debug().Str("db_path", cfg.Store.Path).Msg("store initialized")

	a := &App{
		shutdownTimeout: cfg.Dashboard.ShutdownTimeout,
		store:           st,
		log:             logger,
		Metrics:         metrics.New(),
		Status:          status.NewStore(),
		Notifications:   notify.NewQueue(cfg.Notify.Max, cfg.Notify.TTL),
	}

	tokens, err := auth.NewTokenStore(ctx, st, logger)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("init token store: %w", err)
	}
	a.Tokens = tokens

	th, err := theme.NewStore(ctx, st, theme.SystemDefault(), logger)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("init theme: %w", err)
	}
	a.Theme = th

	sink := notify.Multi{a.Notifications, notify.NewLogSink(logger)}
	a.Navigator = gateway.NewRouteNavigator(logger, func(path string) {
		if path == gateway.LoginPath {
			a.Notifications.Notify(notify.LevelWarning, "session expired, please log in again")
		}
	})
	a.API = gateway.New(cfg.API.BaseURL, tokens, logger,
		gateway.WithHTTPClient(&stdhttp.Client{Timeout: cfg.API.Timeout}),
		gateway.WithNavigator(a.Navigator),
	)

	a.Auth = auth.NewService(tokens, a.API)
	a.Devices = devices.NewStore(a.API, sink, logger)
	a.Settings = settings.NewStore(a.API, sink, logger)
	a.Live = livestream.NewSession(a.API, a.Status, sink, logger)

	a.Events = events.NewLog(
		events.WithCapacity(cfg.Events.Capacity),
		events.WithRecorder(a.Metrics.Events),
		events.WithLogger(logger),
	)
	ws := realtime.NewWebSocketTransport(cfg.API.WebSocketURL(), tokens.Token)
	ws.PingInterval = cfg.Reconnect.PingInterval
	a.Realtime = realtime.NewManager(
		ReconnectPolicy(cfg.Reconnect),
		ws,
		realtime.NewPollTransport(cfg.API.LongPollURL(), tokens.Token),
		a.Events, a.Status, logger,
	)
	a.Realtime.SetRecorder(a.Metrics.Realtime)

	a.server = transporthttp.NewServer(transporthttp.Deps{
		Realtime:      a.Realtime,
		Events:        a.Events,
		Status:        a.Status,
		Theme:         a.Theme,
		Notifications: a.Notifications,
		Metrics:       a.Metrics.Handler(),
	}, cfg.Dashboard, logger)

	return a, nil
}

// Run starts the dashboard and the realtime session and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("dashboard listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.Realtime.Connect()

	select {
	case err := <-serverErr:
		a.Realtime.Disconnect()
		a.cleanup()
		return err
	case <-ctx.Done():
		a.Realtime.Disconnect()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down dashboard")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// Close releases resources for one-shot commands that never call Run.
func (a *App) Close() {
	a.Realtime.Disconnect()
	a.cleanup()
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Debug().Msg("store closed")
		}
		a.store = nil
	}
}
