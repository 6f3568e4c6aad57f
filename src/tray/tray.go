package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"
)

type Config struct {
	Title   string
	Tooltip string
	Hotkey  string
	// OnSnip runs when "Snip region" is clicked.
	OnSnip func()
	// OnExit runs once when the tray goes away, by menu or Destroy.
	OnExit func()
}

type Tray struct {
	cfg      Config
	exitOnce sync.Once
}

func New(cfg Config) *Tray {
	if cfg.Title == "" {
		cfg.Title = "Screen Snip"
	}
	if cfg.Tooltip == "" {
		cfg.Tooltip = cfg.Title
	}
	return &Tray{cfg: cfg}
}

// Run blocks until the tray is destroyed.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Destroy removes the tray icon.
func (t *Tray) Destroy() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetIcon(Icon())
	systray.SetTitle(t.cfg.Title)
	systray.SetTooltip(t.cfg.Tooltip)

	mSnip := systray.AddMenuItem(snipLabel(t.cfg.Hotkey), "Select a screen region and copy it")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		for {
			select {
			case <-mSnip.ClickedCh:
				log.Printf("TRAY: snip requested")
				if t.cfg.OnSnip != nil {
					t.cfg.OnSnip()
				}
			case <-mQuit.ClickedCh:
				log.Printf("TRAY: quit requested")
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.exitOnce.Do(func() {
		if t.cfg.OnExit != nil {
			t.cfg.OnExit()
		}
	})
}

func snipLabel(hotkey string) string {
	if hotkey == "" {
		return "Snip region"
	}
	return "Snip region (" + hotkey + ")"
}
