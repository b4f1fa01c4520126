// Package scraper looks tracks up in the MusicBrainz catalog and fetches
// their front cover from the Cover Art Archive.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/genricoloni/mpdcover/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	searchHost  = "musicbrainz.org"
	coverHost   = "coverartarchive.org"
	catalogPort = 80
)

// Musicbrainz chains a release-group search and a cover download.
// Only the most recent query is remembered; repeating it is a no-op.
type Musicbrainz struct {
	logger *zap.Logger
	http   domain.HTTPGetter
	store  domain.ArtworkStore

	mu        sync.Mutex
	lastQuery string
	inflight  errgroup.Group
}

// NewMusicbrainz creates a scraper backed by the given HTTP client and store
func NewMusicbrainz(logger *zap.Logger, http domain.HTTPGetter, store domain.ArtworkStore) *Musicbrainz {
	return &Musicbrainz{
		logger: logger,
		http:   http,
		store:  store,
	}
}

// Scrape starts a lookup in the background and returns immediately.
// Lookups for distinct queries run side by side, each owning its own exchange.
func (m *Musicbrainz) Scrape(ctx context.Context, title, artist string) {
	query := buildQuery(title, artist)

	m.mu.Lock()
	defer m.mu.Unlock()

	if query == m.lastQuery {
		m.logger.Debug("Query unchanged, skipping scrape", zap.String("query", query))
		return
	}

	m.lastQuery = query
	m.inflight.Go(func() error {
		m.run(ctx, query)
		return nil
	})
}

// Wait blocks until all started scrapes have finished
func (m *Musicbrainz) Wait() error {
	return m.inflight.Wait()
}

func (m *Musicbrainz) run(ctx context.Context, query string) {
	id, ok := m.search(ctx, query)
	if !ok {
		return
	}
	m.scrapeCover(ctx, id)
}

func (m *Musicbrainz) search(ctx context.Context, query string) (string, bool) {
	path := "/ws/2/release-group/?query=" + query + "&fmt=json&limit=1"
	m.logger.Info("Searching catalog", zap.String("host", searchHost), zap.String("path", path))

	resp, err := m.http.Get(ctx, searchHost, path, catalogPort, true)
	if err != nil {
		m.logger.Error("Catalog search failed", zap.String("query", query), zap.Error(err))
		return "", false
	}

	id, err := releaseID(resp.Body)
	if err != nil {
		m.logger.Info("Unusable catalog response",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return "", false
	}
	if id == "" {
		m.logger.Info("No release found", zap.String("query", query))
		return "", false
	}
	return id, true
}

func (m *Musicbrainz) scrapeCover(ctx context.Context, id string) {
	path := "/release/" + url.PathEscape(id) + "/front-500"
	m.logger.Info("Fetching cover", zap.String("host", coverHost), zap.String("path", path))

	resp, err := m.http.Get(ctx, coverHost, path, catalogPort, true)
	if err != nil {
		m.logger.Error("Cover fetch failed", zap.String("release", id), zap.Error(err))
		return
	}
	if !resp.OK() {
		m.logger.Info("No artwork available",
			zap.String("release", id),
			zap.Int("status", resp.StatusCode))
		return
	}

	if err := m.store.Save(resp.Body); err != nil {
		m.logger.Error("Failed to save artwork", zap.String("release", id), zap.Error(err))
		return
	}
	m.logger.Info("Artwork updated", zap.String("release", id), zap.Int("bytes", len(resp.Body)))
}

type searchResult struct {
	ReleaseGroups []struct {
		Releases []struct {
			ID string `json:"id"`
		} `json:"releases"`
	} `json:"release-groups"`
}

// releaseID returns the id of the first release of the first release group.
// An empty id with a nil error means the catalog had no match.
func releaseID(body []byte) (string, error) {
	var result searchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode search result: %w", err)
	}
	if len(result.ReleaseGroups) == 0 {
		return "", nil
	}
	releases := result.ReleaseGroups[0].Releases
	if len(releases) == 0 {
		return "", nil
	}
	return releases[0].ID, nil
}

// buildQuery renders the Lucene query for title and artist,
// already escaped for the query string.
func buildQuery(title, artist string) string {
	var b strings.Builder
	b.WriteString(escape(title))
	if artist != "" {
		b.WriteString(escape(" AND "))
		b.WriteString("artist:")
		b.WriteString(escape(artist))
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
