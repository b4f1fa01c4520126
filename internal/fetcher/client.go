// Package fetcher performs single GET exchanges over a fresh connection,
// optionally following one redirect hop.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/genricoloni/mpdcover/internal/domain"
	"go.uber.org/zap"
)

const (
	_maxBodySize        = 10 * 1024 * 1024 // 10 MB
	defaultStageTimeout = 30 * time.Second
	defaultRedirectPort = 80
	userAgent           = "mpdcover/1.0"
)

// ErrRedirectTarget is returned when a redirect cannot be followed
var ErrRedirectTarget = errors.New("invalid redirect target")

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Client issues one GET per call. Nothing is shared between calls:
// every exchange gets its own transport and connection, torn down on return.
type Client struct {
	logger       *zap.Logger
	stageTimeout time.Duration
	redirectPort int
	dial         dialFunc
}

// NewClient creates a new HTTP client instance
func NewClient(logger *zap.Logger) *Client {
	dialer := &net.Dialer{}
	return &Client{
		logger:       logger,
		stageTimeout: defaultStageTimeout,
		redirectPort: defaultRedirectPort,
		dial:         dialer.DialContext,
	}
}

// Get fetches path from host:port. With followRedirects a 3xx response is
// followed exactly once, on port 80; whatever the second hop returns is final.
func (c *Client) Get(ctx context.Context, host, path string, port int, followRedirects bool) (*domain.HTTPResponse, error) {
	resp, err := c.exchange(ctx, host, path, port)
	if err != nil {
		return nil, err
	}
	if !followRedirects || !isRedirect(resp.StatusCode) {
		return resp, nil
	}

	location := http.Header(resp.Header).Get("Location")
	nextHost, nextPath, err := splitLocation(location, host)
	if err != nil {
		c.logger.Error("Cannot follow redirect",
			zap.String("host", host),
			zap.String("location", location),
			zap.Error(err))
		return nil, err
	}

	c.logger.Info("Following redirect",
		zap.Int("status", resp.StatusCode),
		zap.String("host", nextHost),
		zap.String("path", nextPath))

	// Single hop: a redirect returned here goes back to the caller
	return c.exchange(ctx, nextHost, nextPath, c.redirectPort)
}

func (c *Client) exchange(ctx context.Context, host, path string, port int) (*domain.HTTPResponse, error) {
	transport := &http.Transport{
		DialContext:       c.dialStage,
		DisableKeepAlives: true,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Host = host
	if strings.Contains(host, ":") {
		req.Host = "[" + host + "]"
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, _maxBodySize))
	if err != nil {
		c.logger.Error("Error reading HTTP response", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	c.logger.Debug("HTTP exchange completed",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)))

	return &domain.HTTPResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// dialStage bounds resolve+connect by one window and write+read by a second,
// fresh window starting once the connection is up.
func (c *Client) dialStage(ctx context.Context, network, address string) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.stageTimeout)
	defer cancel()

	conn, err := c.dial(dialCtx, network, address)
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Now().Add(c.stageTimeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &loggedConn{Conn: conn, logger: c.logger}, nil
}

type closeWriter interface {
	CloseWrite() error
}

// loggedConn shuts the write side down before closing and reports
// teardown failures other than an already-gone peer.
type loggedConn struct {
	net.Conn
	logger *zap.Logger
	once   sync.Once
	err    error
}

func (c *loggedConn) Close() error {
	c.once.Do(func() {
		var shutdownErr error
		if cw, ok := c.Conn.(closeWriter); ok {
			shutdownErr = cw.CloseWrite()
		}
		c.err = c.Conn.Close()
		for _, err := range []error{shutdownErr, c.err} {
			if err == nil || errors.Is(err, syscall.ENOTCONN) || errors.Is(err, net.ErrClosed) {
				continue
			}
			c.logger.Error("Error shutting down HTTP connection",
				zap.String("addr", c.RemoteAddr().String()), zap.Error(err))
		}
	})
	return c.err
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

// splitLocation turns a Location header into host and path.
// The scheme is dropped; a bare path stays on the current host.
func splitLocation(location, currentHost string) (host, path string, err error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", "", fmt.Errorf("%w: missing Location header", ErrRedirectTarget)
	}
	if strings.HasPrefix(location, "/") && !strings.HasPrefix(location, "//") {
		return currentHost, location, nil
	}

	if i := strings.Index(location, "://"); i >= 0 && !strings.Contains(location[:i], "/") {
		location = location[i+3:]
	}
	location = strings.TrimPrefix(location, "//")

	host, rest, _ := strings.Cut(location, "/")
	// Redirects are always followed on the fixed port
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	if host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrRedirectTarget, location)
	}
	return host, "/" + rest, nil
}
