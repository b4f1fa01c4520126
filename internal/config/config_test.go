package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		setting string
		want    string
	}{
		{setting: "", want: "127.0.0.1:6600"},
		{setting: "mpd.lan", want: "mpd.lan:6600"},
		{setting: "mpd.lan:6601", want: "mpd.lan:6601"},
		{setting: ":6601", want: "127.0.0.1:6601"},
		{setting: "mpd.lan:abc", want: "mpd.lan:6600"},
		{setting: "mpd.lan:99999", want: "mpd.lan:6600"},
		{setting: " 10.0.0.2:6600 ", want: "10.0.0.2:6600"},
	}

	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			if got := ParseAddress(tt.setting); got != tt.want {
				t.Errorf("ParseAddress(%q) = %q, want %q", tt.setting, got, tt.want)
			}
		})
	}
}

func TestNewAppConfig_Defaults(t *testing.T) {
	t.Setenv("MPDCOVER_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("MPDCOVER_MPD", "")
	t.Setenv("MPDCOVER_OUTPUT_DIR", "")
	t.Setenv("MPDCOVER_THUMBNAIL_SIZE", "")

	cfg := NewAppConfig(zap.NewNop())

	if got := cfg.GetMPDAddress(); got != "127.0.0.1:6600" {
		t.Errorf("mpd: expected 127.0.0.1:6600, got %q", got)
	}
	if got := cfg.GetOutputDir(); got != defaultOutputDir {
		t.Errorf("outputDir: expected %q, got %q", defaultOutputDir, got)
	}
	if got := cfg.GetThumbnailSize(); got != defaultThumbnailSize {
		t.Errorf("thumbnailSize: expected %d, got %d", defaultThumbnailSize, got)
	}
}

func TestNewAppConfig_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mpd = "jukebox:6601"
output_dir = "` + filepath.Join(dir, "art") + `"
thumbnail_size = 0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MPDCOVER_CONFIG", path)
	t.Setenv("MPDCOVER_MPD", "")
	t.Setenv("MPDCOVER_OUTPUT_DIR", "")
	t.Setenv("MPDCOVER_THUMBNAIL_SIZE", "")

	cfg := NewAppConfig(zap.NewNop())
	if got := cfg.GetMPDAddress(); got != "jukebox:6601" {
		t.Errorf("mpd from file: got %q", got)
	}
	if got := cfg.GetOutputDir(); got != filepath.Join(dir, "art") {
		t.Errorf("outputDir from file: got %q", got)
	}
	if got := cfg.GetThumbnailSize(); got != 0 {
		t.Errorf("thumbnail from file: expected 0, got %d", got)
	}

	// Environment wins over the file
	t.Setenv("MPDCOVER_MPD", "other")
	t.Setenv("MPDCOVER_THUMBNAIL_SIZE", "120")
	cfg = NewAppConfig(zap.NewNop())
	if got := cfg.GetMPDAddress(); got != "other:6600" {
		t.Errorf("mpd from env: got %q", got)
	}
	if got := cfg.GetThumbnailSize(); got != 120 {
		t.Errorf("thumbnail from env: expected 120, got %d", got)
	}
}

func TestNewAppConfig_InvalidFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("mpd = [broken"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MPDCOVER_CONFIG", path)
	t.Setenv("MPDCOVER_MPD", "")
	t.Setenv("MPDCOVER_OUTPUT_DIR", "")
	t.Setenv("MPDCOVER_THUMBNAIL_SIZE", "not-a-number")

	cfg := NewAppConfig(zap.NewNop())
	if got := cfg.GetMPDAddress(); got != "127.0.0.1:6600" {
		t.Errorf("expected default address, got %q", got)
	}
	if got := cfg.GetThumbnailSize(); got != defaultThumbnailSize {
		t.Errorf("expected default thumbnail size, got %d", got)
	}
}

func TestNewAppConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MPDCOVER_CONFIG", filepath.Join(home, "none.toml"))
	t.Setenv("MPDCOVER_MPD", "")
	t.Setenv("MPDCOVER_OUTPUT_DIR", "~/covers")
	t.Setenv("MPDCOVER_THUMBNAIL_SIZE", "")

	cfg := NewAppConfig(zap.NewNop())
	if got := cfg.GetOutputDir(); got != filepath.Join(home, "covers") {
		t.Errorf("expected %q, got %q", filepath.Join(home, "covers"), got)
	}
}
