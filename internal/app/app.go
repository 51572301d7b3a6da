package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/pairroom-server/internal/config"
	"github.com/vovakirdan/pairroom-server/internal/core"
	"github.com/vovakirdan/pairroom-server/internal/log"
	transporthttp "github.com/vovakirdan/pairroom-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	broker          *core.Broker
	reaper          *core.Reaper
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rooms := core.NewRoomRegistry()
	conns := core.NewConnectionRegistry(cfg.SendBuffer)
	broker := core.NewBroker(conns, rooms, core.BrokerConfig{
		MaxContentBytes: cfg.MaxContentBytes,
	}, log.Component(logger, "broker"))
	reaper := core.NewReaper(rooms, cfg.RoomSweepInterval, cfg.RoomInactivityTimeout, log.Component(logger, "reaper"))

	server := transporthttp.NewServer(broker, cfg, log.Component(logger, "http"))

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		broker:          broker,
		reaper:          reaper,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and the room reaper and blocks until context
// cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.reaper.Run(ctx)
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		stats := a.broker.Stats()
		a.log.Info().Int("rooms", len(stats.Rooms)).Int("connections", stats.Connections).Msg("http server stopped")
		return nil
	})

	return g.Wait()
}
