package config

import (
	"context"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HOTKEY", "PEN_COLOR", "PEN_WIDTH", "ENABLE_FILE_LOGGING"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("HOTKEY", "Ctrl+Shift+T")
	t.Setenv("PEN_COLOR", "#FF000080")
	t.Setenv("PEN_WIDTH", "4")

	cfg, err := LoadWithOptions(LoadOptions{EnvPath: filepath.Join(t.TempDir(), "missing.env")})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if cfg.Hotkey != "Ctrl+Shift+T" {
		t.Errorf("Expected Hotkey to be 'Ctrl+Shift+T', got '%s'", cfg.Hotkey)
	}
	if cfg.PenColor != (color.RGBA{R: 0x80, A: 0x80}) {
		t.Errorf("unexpected PenColor %v", cfg.PenColor)
	}
	if cfg.PenWidth != 4 {
		t.Errorf("Expected PenWidth 4, got %v", cfg.PenWidth)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadWithOptions(LoadOptions{EnvPath: filepath.Join(t.TempDir(), "missing.env")})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hotkey != DefaultHotkey {
		t.Errorf("Hotkey = %q", cfg.Hotkey)
	}
	if cfg.PenColor != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("PenColor = %v, want blue", cfg.PenColor)
	}
	if cfg.PenWidth != DefaultPenWidth {
		t.Errorf("PenWidth = %v", cfg.PenWidth)
	}
}

func TestLoadFromDotenvAndOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PEN_COLOR=#00FF00\nPEN_WIDTH=1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithOptions(LoadOptions{EnvPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PenColor != (color.RGBA{G: 255, A: 255}) || cfg.PenWidth != 1.5 {
		t.Errorf("dotenv values not applied: %+v", cfg)
	}
	if cfg.EnvPath != path {
		t.Errorf("EnvPath = %q", cfg.EnvPath)
	}

	cfg, err = LoadWithOptions(LoadOptions{EnvPath: path, PenColorOverride: "#FFFFFF", PenWidthOverride: 6})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PenColor != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) || cfg.PenWidth != 6 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadPen(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"short color", "PEN_COLOR", "#FFF"},
		{"non-hex color", "PEN_COLOR", "#GGGGGG"},
		{"zero width", "PEN_WIDTH", "0"},
		{"negative width", "PEN_WIDTH", "-2"},
		{"text width", "PEN_WIDTH", "thick"},
		{"infinite width", "PEN_WIDTH", "+Inf"},
		{"nan width", "PEN_WIDTH", "NaN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := LoadWithOptions(LoadOptions{EnvPath: filepath.Join(t.TempDir(), "none")}); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadRejectsBadWidthOverride(t *testing.T) {
	for _, w := range []float64{math.Inf(1), math.NaN(), -3} {
		clearEnv(t)
		_, err := LoadWithOptions(LoadOptions{EnvPath: filepath.Join(t.TempDir(), "none"), PenWidthOverride: w})
		if err == nil {
			t.Errorf("expected error for width override %v", w)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#0000FF", color.RGBA{B: 255, A: 255}},
		{"0000ff", color.RGBA{B: 255, A: 255}},
		{"#11223344", color.RGBA{R: 0x04, G: 0x09, B: 0x0d, A: 0x44}},
		{"#FF000080", color.RGBA{R: 0x80, A: 0x80}},
		{"#FFFFFF00", color.RGBA{}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if got.R > got.A || got.G > got.A || got.B > got.A {
			t.Errorf("ParseColor(%q) = %v is not premultiplied", tt.in, got)
		}
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PEN_WIDTH=2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, LoadOptions{}, func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-changes:
			if c.PenWidth != 7 {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-tick.C:
			_ = os.WriteFile(path, []byte("PEN_WIDTH=7\n"), 0o644)
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatchRequiresPath(t *testing.T) {
	if err := Watch(context.Background(), "", LoadOptions{}, func(*Config) {}); err == nil {
		t.Error("expected error for empty path")
	}
}
