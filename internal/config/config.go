package config

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

const (
	defaultConfigPath    = "~/.config/mpdcover/config.toml"
	defaultMPDHost       = "127.0.0.1"
	defaultMPDPort       = 6600
	defaultOutputDir     = "/tmp/mpdcover"
	defaultThumbnailSize = 250
)

// fileConfig mirrors the optional TOML file
type fileConfig struct {
	MPD           string `toml:"mpd"`
	OutputDir     string `toml:"output_dir"`
	ThumbnailSize *int   `toml:"thumbnail_size"`
}

// AppConfig holds application configuration
type AppConfig struct {
	logger        *zap.Logger
	mpdAddress    string
	outputDir     string
	thumbnailSize int
}

// NewAppConfig creates a new application configuration instance.
// Defaults are overridden by the config file, then by environment variables.
func NewAppConfig(logger *zap.Logger) *AppConfig {
	mpd := ""
	outputDir := defaultOutputDir
	thumbnailSize := defaultThumbnailSize

	path := os.Getenv("MPDCOVER_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	path = expandPath(path)

	file, err := loadFile(path)
	switch {
	case err == nil:
		logger.Info("Config file loaded", zap.String("path", path))
		if file.MPD != "" {
			mpd = file.MPD
		}
		if file.OutputDir != "" {
			outputDir = file.OutputDir
		}
		if file.ThumbnailSize != nil {
			thumbnailSize = *file.ThumbnailSize
		}
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("No config file, using defaults", zap.String("path", path))
	default:
		logger.Warn("Ignoring unreadable config file", zap.String("path", path), zap.Error(err))
	}

	// Read from environment variables or keep what we have
	if v := os.Getenv("MPDCOVER_MPD"); v != "" {
		mpd = v
	}
	if v := os.Getenv("MPDCOVER_OUTPUT_DIR"); v != "" {
		outputDir = v
	}
	if v := os.Getenv("MPDCOVER_THUMBNAIL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			thumbnailSize = n
		} else {
			logger.Warn("Invalid MPDCOVER_THUMBNAIL_SIZE, keeping current value",
				zap.String("value", v),
				zap.Int("thumbnailSize", thumbnailSize))
		}
	}
	if thumbnailSize < 0 {
		thumbnailSize = 0
	}

	cfg := &AppConfig{
		logger:        logger,
		mpdAddress:    ParseAddress(mpd),
		outputDir:     expandPath(outputDir),
		thumbnailSize: thumbnailSize,
	}

	logger.Info("Configuration loaded",
		zap.String("mpd", cfg.mpdAddress),
		zap.String("outputDir", cfg.outputDir),
		zap.Int("thumbnailSize", cfg.thumbnailSize))

	return cfg
}

// GetMPDAddress returns the control daemon endpoint as host:port
func (c *AppConfig) GetMPDAddress() string {
	return c.mpdAddress
}

// GetOutputDir returns the directory artwork is written to
func (c *AppConfig) GetOutputDir() string {
	return c.outputDir
}

// GetThumbnailSize returns the thumbnail edge in pixels, 0 when disabled
func (c *AppConfig) GetThumbnailSize() int {
	return c.thumbnailSize
}

// ParseAddress turns a "host:port" setting into a dialable address.
// A missing host means 127.0.0.1; a missing or invalid port means 6600.
func ParseAddress(setting string) string {
	host := defaultMPDHost
	port := defaultMPDPort

	parts := strings.Split(strings.TrimSpace(setting), ":")
	if len(parts) >= 1 && parts[0] != "" {
		host = parts[0]
	}
	if len(parts) >= 2 {
		if p, err := strconv.Atoi(parts[1]); err == nil && p > 0 && p <= 65535 {
			port = p
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func loadFile(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// expandPath resolves environment variables and a leading ~
func expandPath(path string) string {
	path = os.ExpandEnv(path)
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}
