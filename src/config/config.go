package config

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultHotkey   = "Ctrl+Alt+S"
	DefaultPenColor = "#0000FF"
	DefaultPenWidth = 2.5
	EnvPathEnvVar   = "SCREEN_SNIP"
)

type LoadOptions struct {
	// EnvPath skips the lookup next to the executable when set.
	EnvPath          string
	PenColorOverride string
	PenWidthOverride float64
}

type Config struct {
	EnvPath           string
	EnableFileLogging bool
	Hotkey            string
	PenColor          color.RGBA
	PenWidth          float64
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use SCREEN_SNIP env var as a path to a config file
	envPath := strings.TrimSpace(opts.EnvPath)
	if envPath == "" {
		envPath = resolveEnvPath()
	}
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	colorValue := firstNonEmpty(opts.PenColorOverride, dotenvValues["PEN_COLOR"], os.Getenv("PEN_COLOR"), DefaultPenColor)
	penColor, err := ParseColor(colorValue)
	if err != nil {
		return nil, fmt.Errorf("PEN_COLOR: %w", err)
	}

	penWidth := DefaultPenWidth
	if v := firstNonEmpty(dotenvValues["PEN_WIDTH"], os.Getenv("PEN_WIDTH")); v != "" {
		penWidth, err = parseWidth(v)
		if err != nil {
			return nil, fmt.Errorf("PEN_WIDTH: %w", err)
		}
	}
	if w := opts.PenWidthOverride; w != 0 {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("pen width override: width must be a positive number, got %v", w)
		}
		penWidth = w
	}

	cfg := &Config{
		EnvPath:           envPath,
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		Hotkey:            getEnvWithDefault("HOTKEY", DefaultHotkey),
		PenColor:          penColor,
		PenWidth:          penWidth,
	}

	return cfg, nil
}

// ParseColor accepts #RRGGBB or #RRGGBBAA with straight (non-premultiplied)
// alpha and returns the premultiplied colour image/draw expects.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want #RRGGBB or #RRGGBBAA", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	n := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(n).(color.RGBA), nil
}

func parseWidth(s string) (float64, error) {
	w, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid width %q: %w", s, err)
	}
	if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("width must be a positive number, got %q", s)
	}
	return w, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
