package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/mpdcover/internal/artwork"
	"github.com/genricoloni/mpdcover/internal/config"
	"github.com/genricoloni/mpdcover/internal/domain"
	"github.com/genricoloni/mpdcover/internal/engine"
	"github.com/genricoloni/mpdcover/internal/fetcher"
	"github.com/genricoloni/mpdcover/internal/mpd"
	"github.com/genricoloni/mpdcover/internal/scraper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// AppOptions is the complete dependency graph of the daemon
var AppOptions = fx.Options(
	// Provide dependencies
	fx.Provide(
		newLogger,
		fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
		fx.Annotate(fetcher.NewClient, fx.As(new(domain.HTTPGetter))),
		fx.Annotate(artwork.NewStore, fx.As(new(domain.ArtworkStore))),
		fx.Annotate(scraper.NewMusicbrainz, fx.As(new(domain.Scraper))),
		fx.Annotate(mpd.NewSession, fx.As(new(domain.Listener))),
		engine.NewEngine,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(
		// Logger configuration
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		AppOptions,
	)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the application
	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	// Stop the application gracefully
	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		panic(err)
	}
}

// newLogger creates a new zap logger instance
func newLogger() (*zap.Logger, error) {
	if os.Getenv("MPDCOVER_DEBUG") == "1" {
		return zap.NewDevelopment()
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, eng *engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("mpdcover daemon started")
			return eng.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			err := eng.Stop(ctx)
			_ = logger.Sync()
			return err
		},
	})
}
