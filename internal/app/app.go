package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireirc/internal/config"
	"github.com/vovakirdan/wireirc/internal/core"
	"github.com/vovakirdan/wireirc/internal/hostname"
	"github.com/vovakirdan/wireirc/internal/session"
	transporthttp "github.com/vovakirdan/wireirc/internal/transport/http"
	"github.com/vovakirdan/wireirc/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	irc             *tcp.Server
	http            *stdhttp.Server
	tracker         *session.Tracker
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	dispatcher := core.NewDispatcher(core.ServerInfo{Name: cfg.ServerName})
	resolver := hostname.New(cfg.ResolveHostnames, cfg.ResolveTimeout, cfg.HostCacheTTL)
	tracker := session.NewTracker(cfg.MaxConnections)

	a := &App{
		irc:             tcp.NewServer(cfg, dispatcher, resolver, tracker, logger),
		tracker:         tracker,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
	if cfg.HTTPAddr != "" {
		a.http = transporthttp.NewServer(cfg, dispatcher, resolver, tracker, logger)
	}
	return a
}

// Addr returns the IRC listener address once Run has bound it.
func (a *App) Addr() net.Addr {
	return a.irc.Addr()
}

// Run binds the listeners and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	if err := a.irc.Listen(ctx); err != nil {
		return err
	}

	serverErr := make(chan error, 2)

	go func() {
		serverErr <- a.irc.Serve(ctx)
	}()

	if a.http != nil {
		go func() {
			a.log.Info().Str("addr", a.http.Addr).Msg("http gateway listening")
			if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- fmt.Errorf("http server: %w", err)
				return
			}
			serverErr <- nil
		}()
	}

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
	}

	return errors.Join(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if a.http != nil {
		a.log.Info().Msg("shutting down http server")
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	a.log.Info().Int64("sessions", a.tracker.Active()).Msg("shutting down irc server")
	if err := a.irc.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("irc shutdown: %w", err))
	}
	return errors.Join(errs...)
}
