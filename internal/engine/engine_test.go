package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/genricoloni/mpdcover/internal/domain"
	"github.com/genricoloni/mpdcover/internal/domain/mocks"
	"go.uber.org/mock/gomock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func blockUntilCancelled(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestEngine_StartStop(t *testing.T) {
	tests := []struct {
		name     string
		runErr   func(ctx context.Context) error
		waitErr  error
		wantErrs int
	}{
		{
			name:   "Clean shutdown",
			runErr: blockUntilCancelled,
		},
		{
			name:     "Scraper drain error is reported",
			runErr:   blockUntilCancelled,
			waitErr:  errors.New("drain failed"),
			wantErrs: 1,
		},
		{
			name: "Listener error and drain error are combined",
			runErr: func(ctx context.Context) error {
				<-ctx.Done()
				return errors.New("listener broke")
			},
			waitErr:  errors.New("drain failed"),
			wantErrs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			listener := mocks.NewMockListener(ctrl)
			scraper := mocks.NewMockScraper(ctrl)

			listener.EXPECT().Run(gomock.Any()).DoAndReturn(tt.runErr)
			listener.EXPECT().Current().Return(domain.MediaMetadata{Title: "T", Artist: "A"})
			scraper.EXPECT().Wait().Return(tt.waitErr)

			e := NewEngine(zap.NewNop(), listener, scraper)

			// A start context that is cancelled right after startup must not stop the loop
			startCtx, cancelStart := context.WithCancel(context.Background())
			if err := e.Start(startCtx); err != nil {
				t.Fatalf("Start: %v", err)
			}
			cancelStart()

			select {
			case <-e.done:
				t.Fatal("listener stopped together with the start context")
			case <-time.After(20 * time.Millisecond):
			}

			err := e.Stop(t.Context())
			if got := len(multierr.Errors(err)); got != tt.wantErrs {
				t.Errorf("expected %d errors, got %d (%v)", tt.wantErrs, got, err)
			}
		})
	}
}

func TestEngine_StopBeforeStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := NewEngine(zap.NewNop(), mocks.NewMockListener(ctrl), mocks.NewMockScraper(ctrl))

	if err := e.Stop(t.Context()); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestEngine_StopHonoursDeadline(t *testing.T) {
	ctrl := gomock.NewController(t)
	listener := mocks.NewMockListener(ctrl)
	scraper := mocks.NewMockScraper(ctrl)

	release := make(chan struct{})
	defer close(release)

	listener.EXPECT().Run(gomock.Any()).DoAndReturn(blockUntilCancelled)
	scraper.EXPECT().Wait().DoAndReturn(func() error {
		<-release
		return nil
	})

	e := NewEngine(zap.NewNop(), listener, scraper)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.Stop(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
