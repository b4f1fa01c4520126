// Package mpd follows a Music Player Daemon over its text protocol and
// forwards every track change to a domain.Scraper.
package mpd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/genricoloni/mpdcover/internal/domain"
	"go.uber.org/zap"
)

const reconnectDelay = 1 * time.Second

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Session keeps a connection to the player daemon alive and runs the idle loop:
// idle, currentsong, status, repeat. Any I/O error drops the connection and a
// new one is attempted after a fixed delay, forever.
type Session struct {
	logger  *zap.Logger
	address string
	scraper domain.Scraper

	// Replaced in tests
	dial  dialFunc
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.RWMutex
	current domain.MediaMetadata
}

// NewSession creates a session for the endpoint configured in cfg
func NewSession(logger *zap.Logger, cfg domain.Config, scraper domain.Scraper) *Session {
	dialer := &net.Dialer{}
	return &Session{
		logger:  logger,
		address: cfg.GetMPDAddress(),
		scraper: scraper,
		dial:    dialer.DialContext,
		sleep:   sleepContext,
		current: domain.MediaMetadata{Status: domain.StatusStopped},
	}
}

// Run connects and follows the daemon until ctx is cancelled.
// It always returns ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.connectAndServe(ctx)
		if ctx.Err() != nil {
			s.logger.Info("Control session stopped")
			return ctx.Err()
		}
		s.logger.Error("Control connection lost",
			zap.String("address", s.address),
			zap.Error(err))

		s.logger.Info("Reconnecting", zap.Duration("delay", reconnectDelay))
		if err := s.sleep(ctx, reconnectDelay); err != nil {
			s.logger.Info("Control session stopped")
			return err
		}
	}
}

// Current returns the last track snapshot assembled by the idle loop
func (s *Session) Current() domain.MediaMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) connectAndServe(ctx context.Context) error {
	s.logger.Info("Connecting to player daemon", zap.String("address", s.address))

	nc, err := s.dial(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer nc.Close()

	// Unblocks a pending read (idle can wait forever) on shutdown
	stop := context.AfterFunc(ctx, func() { _ = nc.Close() })
	defer stop()

	c := newConn(nc)

	// "OK MPD 0.23.5"
	greeting, err := c.readResponse("connect")
	if err != nil {
		return err
	}
	s.logResponse(greeting)
	if err := greeting.Err(); err != nil {
		return err
	}

	// The first idle is interrupted right away so the initial track is queried
	prime := true
	for {
		if err := s.cycle(ctx, c, prime); err != nil {
			return err
		}
		prime = false
	}
}

// cycle runs one idle/currentsong/status round. Only I/O errors are returned;
// a rejected command ends the round and the next one starts with idle.
func (s *Session) cycle(ctx context.Context, c *conn, prime bool) error {
	if err := c.send("idle"); err != nil {
		return err
	}
	if prime {
		if err := c.send("noidle"); err != nil {
			return err
		}
	}
	idle, err := c.readResponse("idle")
	if err != nil {
		return err
	}
	if s.rejected(idle) {
		return nil
	}

	song, err := c.roundTrip("currentsong")
	if err != nil {
		return err
	}
	if s.rejected(song) {
		return nil
	}

	meta := parseSong(song)
	if meta.Title == "" && meta.Artist == "" {
		s.logger.Debug("No track tags, skipping scrape")
	} else {
		s.scraper.Scrape(ctx, meta.Title, meta.Artist)
	}

	status, err := c.roundTrip("status")
	if err != nil {
		return err
	}
	if s.rejected(status) {
		return nil
	}
	meta.Status = parseState(status)

	s.mu.Lock()
	s.current = meta
	s.mu.Unlock()

	s.logger.Info("Now playing",
		zap.String("title", meta.Title),
		zap.String("artist", meta.Artist),
		zap.String("album", meta.Album),
		zap.String("status", string(meta.Status)))
	return nil
}

func (s *Session) rejected(resp *Response) bool {
	s.logResponse(resp)
	err := resp.Err()
	if err == nil {
		return false
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		s.logger.Warn("Command failed",
			zap.String("command", perr.Command),
			zap.String("reply", perr.Line))
	}
	return true
}

func (s *Session) logResponse(resp *Response) {
	if ce := s.logger.Check(zap.DebugLevel, "Response received"); ce != nil {
		ce.Write(zap.String("command", resp.Command), zap.Strings("lines", resp.Lines))
	}
}

func parseSong(resp *Response) domain.MediaMetadata {
	var meta domain.MediaMetadata
	// Absent tags stay empty
	meta.Title, _ = resp.Get("Title")
	meta.Artist, _ = resp.Get("Artist")
	meta.Album, _ = resp.Get("Album")
	meta.AlbumArtist, _ = resp.Get("AlbumArtist")
	meta.File, _ = resp.Get("file")
	return meta
}

func parseState(resp *Response) domain.PlayerStatus {
	state, _ := resp.Get("state")
	switch state {
	case "play":
		return domain.StatusPlaying
	case "pause":
		return domain.StatusPaused
	default:
		return domain.StatusStopped
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
