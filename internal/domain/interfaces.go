package domain

import "context"

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/genricoloni/mpdcover/internal/domain Listener,Scraper,HTTPGetter,ArtworkStore

// Listener defines the interface for following the player daemon
// Implementations keep a connection open and forward track changes to a Scraper
type Listener interface {
	// Run blocks until ctx is cancelled, reconnecting on any I/O error
	Run(ctx context.Context) error

	// Current returns the most recently observed track snapshot
	Current() MediaMetadata
}

// Scraper defines the interface for enriching a track with catalog artwork
type Scraper interface {
	// Scrape starts an enrichment attempt for the given track.
	// It must not block the caller on network I/O.
	Scrape(ctx context.Context, title, artist string)

	// Wait blocks until every in-flight attempt has finished
	Wait() error
}

// HTTPGetter defines the interface for a single GET exchange
type HTTPGetter interface {
	// Get fetches path from host:port. When followRedirects is set a 3xx
	// response is followed exactly once before the result is returned.
	Get(ctx context.Context, host, path string, port int, followRedirects bool) (*HTTPResponse, error)
}

// ArtworkStore defines the interface for persisting fetched artwork
type ArtworkStore interface {
	// Save overwrites the stored artwork with data
	Save(data []byte) error
}

// Config defines the interface for application configuration
type Config interface {
	// GetMPDAddress returns the control daemon endpoint as host:port
	GetMPDAddress() string

	// GetOutputDir returns the directory artwork is written to
	GetOutputDir() string

	// GetThumbnailSize returns the thumbnail edge in pixels, 0 when disabled
	GetThumbnailSize() int
}
