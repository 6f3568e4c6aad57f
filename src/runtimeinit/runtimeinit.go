package runtimeinit

import (
	"fmt"
	"log"

	"screen-snip/src/clipboard"
	"screen-snip/src/config"
	"screen-snip/src/render"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// SkipClipboard leaves the clipboard uninitialized, for modes that
	// never write to it.
	SkipClipboard bool
}

// Bootstrap loads configuration, sets up logging and initializes the
// clipboard, in that order.
func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	log.Printf("Config loaded from %q: hotkey=%s pen=%v/%.1f", cfg.EnvPath, cfg.Hotkey, cfg.PenColor, cfg.PenWidth)

	if !opts.SkipClipboard {
		if err := clipboard.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	return cfg, nil
}

// Pen builds the border pen from configuration.
func Pen(cfg *config.Config) render.Pen {
	if cfg == nil {
		return render.DefaultPen()
	}
	return render.Pen{Color: cfg.PenColor, Width: cfg.PenWidth}
}
