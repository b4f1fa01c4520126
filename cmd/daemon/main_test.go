package main

import (
	"net"
	"path/filepath"
	"testing"

	"go.uber.org/fx"
)

// TestAppGraphValidity verifies that the dependency graph is resolvable.
// This test will fail if you forget an fx.Provide for a required interface.
func TestAppGraphValidity(t *testing.T) {
	// fx.ValidateApp checks that there are no missing or cyclic dependencies
	err := fx.ValidateApp(AppOptions)

	if err != nil {
		t.Errorf("Dependency graph is not valid: %v", err)
	}
}

// TestNewLogger specifically verifies the logger configuration
func TestNewLogger(t *testing.T) {
	for _, debug := range []string{"", "1"} {
		t.Setenv("MPDCOVER_DEBUG", debug)
		logger, err := newLogger()
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		if logger == nil {
			t.Fatal("Logger should not be nil")
		}
		// We can verify it's a real logger by writing something (should not panic)
		logger.Info("Test logger initialization")
	}
}

// TestEndToEndStartup tries a real startup/stop against an endpoint nobody listens on.
// The session keeps retrying in the background; Stop must still return promptly.
// We use fx.NopLogger to avoid cluttering test output
func TestEndToEndStartup(t *testing.T) {
	// Grab a free port, then release it so connects are refused
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	dir := t.TempDir()
	t.Setenv("MPDCOVER_CONFIG", filepath.Join(dir, "none.toml"))
	t.Setenv("MPDCOVER_MPD", addr)
	t.Setenv("MPDCOVER_OUTPUT_DIR", dir)

	app := fx.New(
		AppOptions,
		fx.NopLogger, // Silence Fx logs during tests
	)

	// Verify that the app can start without errors
	if err := app.Start(t.Context()); err != nil {
		t.Fatalf("App failed to start: %v", err)
	}

	// Verify that the app can stop without errors
	if err := app.Stop(t.Context()); err != nil {
		t.Fatalf("App failed to stop: %v", err)
	}
}
