package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cardhouse/blackjackd/internal/ledger"
	"github.com/cardhouse/blackjackd/internal/server"
	"github.com/cardhouse/blackjackd/internal/store"
)

// ServeCmd runs the HTTP server and the expiry sweeper
type ServeCmd struct {
	Addr          string `kong:"help='Server address (overrides config)'"`
	Config        string `kong:"default='blackjackd.hcl',help='Path to HCL config file'"`
	DB            string `kong:"help='Path to SQLite database (overrides config)'"`
	Debug         bool   `kong:"help='Enable debug logging'"`
	SweepInterval int    `kong:"default='60',help='Expiry sweep interval in seconds'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.DB != "" {
		cfg.Server.DBPath = c.DB
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(cfg.Server.LogLevel)

	db, err := store.OpenDB(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	clock := quartz.NewReal()
	games := store.NewSQLiteStore(db, clock, cfg.TTL())
	settings := store.NewSQLiteSettings(db, store.Settings{
		Enabled: cfg.Game.Enabled,
		MinBet:  cfg.Game.MinBet,
		MaxBet:  cfg.Game.MaxBet,
	})
	points := ledger.NewSQLLedger(db)

	for _, m := range []func() error{games.Migrate, settings.Migrate, points.Migrate} {
		if err := m(); err != nil {
			return err
		}
	}

	srv := server.New(logger, games, settings, points,
		server.WithClock(clock),
		server.WithTTL(cfg.TTL()),
	)

	logger.Info().
		Str("address", cfg.Server.Address).
		Str("db", cfg.Server.DBPath).
		Int64("min_bet", cfg.Game.MinBet).
		Int64("max_bet", cfg.Game.MaxBet).
		Bool("enabled", cfg.Game.Enabled).
		Dur("ttl", cfg.TTL()).
		Msg("starting blackjackd")

	ctx := setupSignalHandler(logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.RunSweeper(ctx, time.Duration(c.SweepInterval)*time.Second)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// setupLogger configures zerolog with pretty console output
func setupLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// setupSignalHandler creates a context cancelled on interrupt signals
func setupSignalHandler(logger zerolog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down gracefully")
		cancel()
	}()

	return ctx
}
