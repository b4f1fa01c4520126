package engine

import (
	"context"
	"errors"

	"github.com/genricoloni/mpdcover/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Engine owns the lifecycle of the enrichment pipeline.
// The listener drives the scraper; the engine only starts and drains them.
type Engine struct {
	logger   *zap.Logger
	listener domain.Listener
	scraper  domain.Scraper

	cancel context.CancelFunc
	done   chan error
}

// NewEngine creates a new orchestration engine
func NewEngine(logger *zap.Logger, listener domain.Listener, scraper domain.Scraper) *Engine {
	return &Engine{
		logger:   logger,
		listener: listener,
		scraper:  scraper,
	}
}

// Start launches the listener in a goroutine.
// It returns immediately (non-blocking).
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...")

	// The start context expires once startup is over; the loop must outlive it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.done = make(chan error, 1)

	go func() {
		e.done <- e.listener.Run(runCtx)
	}()
	return nil
}

// Stop cancels the listener and waits for in-flight scrapes to finish
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	var err error
	select {
	case runErr := <-e.done:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			err = multierr.Append(err, runErr)
		}
	case <-ctx.Done():
		return multierr.Append(err, ctx.Err())
	}

	drained := make(chan error, 1)
	go func() {
		drained <- e.scraper.Wait()
	}()
	select {
	case waitErr := <-drained:
		err = multierr.Append(err, waitErr)
	case <-ctx.Done():
		return multierr.Append(err, ctx.Err())
	}

	last := e.listener.Current()
	e.logger.Info("Engine stopped",
		zap.String("lastTitle", last.Title),
		zap.String("lastArtist", last.Artist))
	return err
}
