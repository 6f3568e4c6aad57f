package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"

	"screen-snip/src/clipboard"
	"screen-snip/src/config"
	"screen-snip/src/eventloop"
	"screen-snip/src/gui"
	"screen-snip/src/logutil"
	"screen-snip/src/notification"
	"screen-snip/src/overlay"
	"screen-snip/src/publish"
	"screen-snip/src/runtimeinit"
	"screen-snip/src/screenshot"
	"screen-snip/src/session"
	"screen-snip/src/singleinstance"
	"screen-snip/src/tray"
)

type mainOptions struct {
	runOnce  bool
	stdout   bool
	envPath  string
	penColor string
	penWidth float64
}

func (o *mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		EnvPath:          o.envPath,
		PenColorOverride: o.penColor,
		PenWidthOverride: o.penWidth,
	}
}

func main() {
	os.Args = normalizeLegacyArgs(os.Args)
	opts := &mainOptions{}
	if err := newRootCmd(opts).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-snip",
		Short:         "Select a screen region and copy it to the clipboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.runOnce, "run-once", false, "Snip once (delegating to a running resident if any) and exit")
	f.BoolVar(&opts.stdout, "stdout", false, "With --run-once, write the PNG to stdout instead of the clipboard")
	f.StringVar(&opts.envPath, "env", "", "Path to the .env file (default: next to the executable)")
	f.StringVar(&opts.penColor, "pen-color", "", "Border color as #RRGGBB or #RRGGBBAA")
	f.Float64Var(&opts.penWidth, "pen-width", 0, "Border width in pixels")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags (-run-once) to the
// double-dash form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 1; i < len(out); i++ {
		arg := out[i]
		if len(arg) > 2 && arg[0] == '-' && arg[1] != '-' {
			out[i] = "-" + arg
		}
	}
	return out
}

func run(ctx context.Context, opts *mainOptions) error {
	enableDPIAwareness()

	if opts.runOnce {
		// Load .env early so SINGLEINSTANCE_PORT_* are applied before delegation scan
		_, _ = config.LoadWithOptions(opts.loadOptions())
		return handleRunOnceWithDelegation(ctx, opts.stdout, singleinstance.NewClient(), os.Stdout, func() error {
			return runStandalone(ctx, opts)
		})
	}
	return runResident(ctx, opts)
}

// handleRunOnceWithDelegation hands the snip to a resident when one answers
// and falls back to a standalone overlay otherwise.
func handleRunOnceWithDelegation(ctx context.Context, wantPNG bool, client singleinstance.Client, out io.Writer, fallback func() error) error {
	delegated, payload, err := client.TryRunOnce(ctx, wantPNG)
	switch {
	case err != nil && delegated:
		return err
	case err != nil:
		log.Printf("Delegation error: %v; falling back to standalone", err)
		return fallback()
	case !delegated:
		log.Printf("No resident detected (not delegated), running standalone")
		return fallback()
	}
	log.Printf("Delegated to resident")
	if wantPNG {
		if _, err := out.Write(payload); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
	}
	return nil
}

func newSelector(s screen.Screen) (overlay.Selector, error) {
	return overlay.NewSelector(overlay.Options{
		Native:  gui.NativeSupported,
		Screen:  s,
		Capture: screenshot.Capturer{},
		Sink:    clipboard.Sink{},
		Bounds:  screenshot.VirtualBounds,
	})
}

func logDisplays() {
	displays, err := screenshot.Displays()
	if err != nil {
		log.Printf("MONITOR: %v", err)
		return
	}
	for i, d := range displays {
		log.Printf("MONITOR: display %d at %v", i, d)
	}
}

// runStandalone shows one overlay in this process.
func runStandalone(ctx context.Context, opts *mainOptions) error {
	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:   opts.loadOptions(),
		SetupLogging:  logutil.Setup,
		SkipClipboard: opts.stdout,
	})
	if err != nil {
		return err
	}
	logDisplays()

	req := overlay.Request{Pen: runtimeinit.Pen(cfg)}
	if opts.stdout {
		req.Sink = publish.PNGSink{W: os.Stdout}
	}

	var runErr error
	driver.Main(func(s screen.Screen) {
		sel, err := newSelector(s)
		if err != nil {
			runErr = err
			return
		}
		res, err := sel.Select(ctx, req)
		if err != nil {
			runErr = err
			return
		}
		log.Printf("Snip of %v completed", res.Rect)
	})
	if errors.Is(runErr, session.ErrSelectionCancelled) {
		return nil
	}
	return runErr
}

func runResident(ctx context.Context, opts *mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT_* are available for pre-flight
	_, _ = config.LoadWithOptions(opts.loadOptions())
	startPort, _ := singleinstance.PortRange()
	addr := fmt.Sprintf("127.0.0.1:%d", startPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("one is already running on port %d", startPort)
	}
	// We claimed the port; release it so the event loop can re-bind.
	_ = listener.Close()

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  opts.loadOptions(),
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		return err
	}
	log.Printf("Screen Snip initialized, hotkey: %s", cfg.Hotkey)
	logDisplays()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifier := notification.New()
	var runErr error
	driver.Main(func(s screen.Screen) {
		sel, err := newSelector(s)
		if err != nil {
			runErr = err
			return
		}
		loop := eventloop.New(eventloop.Options{
			Selector: sel,
			Server:   singleinstance.NewServer(),
			Notifier: notifier,
			Pen:      runtimeinit.Pen(cfg),
		})

		trayIcon := tray.New(tray.Config{
			Title:   "Screen Snip",
			Tooltip: fmt.Sprintf("Screen Snip - Press %s to select a region", cfg.Hotkey),
			Hotkey:  cfg.Hotkey,
			OnSnip:  loop.Trigger,
			OnExit:  cancel,
		})
		go trayIcon.Run()
		defer trayIcon.Destroy()

		if err := loop.StartHotkey(ctx, cfg.Hotkey); err != nil {
			log.Printf("Hotkey unavailable: %v", err)
			notification.ReportError(notifier, fmt.Errorf("hotkey %s: %w", cfg.Hotkey, err))
		}
		loop.WatchConfig(ctx, cfg.EnvPath, opts.loadOptions())

		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	})
	return runErr
}
