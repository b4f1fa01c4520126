package artwork

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/mpdcover/internal/domain"
	"go.uber.org/zap"
)

const (
	coverFilename     = "cover.jpg"
	thumbnailFilename = "cover-%d.jpg"
	thumbnailQuality  = 90
)

// Store writes the current cover to a fixed file, plus an optional thumbnail
type Store struct {
	logger *zap.Logger
	cfg    domain.Config
}

// NewStore creates a new artwork store writing to the configured output dir
func NewStore(logger *zap.Logger, cfg domain.Config) *Store {
	return &Store{
		logger: logger,
		cfg:    cfg,
	}
}

// Save overwrites cover.jpg with data.
// A thumbnail failure is logged and does not fail the save.
func (s *Store) Save(data []byte) error {
	// 1. Ensure output directory exists
	outputDir := s.cfg.GetOutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// 2. Write raw artwork bytes
	outputPath := filepath.Join(outputDir, coverFilename)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write artwork file: %w", err)
	}

	s.logger.Info("Artwork saved",
		zap.String("path", outputPath),
		zap.Int("size", len(data)))

	// 3. Thumbnail
	size := s.cfg.GetThumbnailSize()
	if size <= 0 {
		return nil
	}
	thumbPath, err := s.writeThumbnail(outputDir, data, size)
	if err != nil {
		s.logger.Warn("Failed to generate thumbnail", zap.Int("size", size), zap.Error(err))
		return nil
	}

	s.logger.Debug("Thumbnail generated", zap.String("path", thumbPath))
	return nil
}

func (s *Store) writeThumbnail(outputDir string, data []byte, size int) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	thumb := imaging.Fit(img, size, size, imaging.Lanczos)

	path := filepath.Join(outputDir, fmt.Sprintf(thumbnailFilename, size))
	if err := imaging.Save(thumb, path, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return path, nil
}
