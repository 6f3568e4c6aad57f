// Command replay drives a selection session headlessly: a PNG stands in for
// the screen and a gesture script stands in for the user.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"screen-snip/src/clipboard"
	"screen-snip/src/config"
	"screen-snip/src/events"
	"screen-snip/src/logutil"
	"screen-snip/src/publish"
	"screen-snip/src/render"
	"screen-snip/src/runtimeinit"
	"screen-snip/src/session"
	"screen-snip/src/snapshot"
)

type replayOptions struct {
	screenPath string
	scriptPath string
	stdout     bool
	verbose    bool
	origin     string
	penColor   string
	penWidth   float64
	envPath    string
}

func main() {
	if err := runWithArgs(os.Args, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"replay"}
	}
	opts := &replayOptions{}
	cmd := newRootCmd(opts, stdin, stdout)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *replayOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "replay",
		Short:         "Replay a selection gesture against a PNG screen",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, stdin, stdout)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.screenPath, "screen", "", "PNG standing in for the screen")
	f.StringVar(&opts.scriptPath, "script", "-", "Gesture script (use '-' for stdin)")
	f.BoolVar(&opts.stdout, "stdout", false, "Write the selection PNG to stdout instead of the clipboard")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	f.StringVar(&opts.origin, "origin", "0,0", "Screen position of the PNG's top-left pixel as X,Y")
	f.StringVar(&opts.penColor, "pen-color", "", "Border color as #RRGGBB or #RRGGBBAA")
	f.Float64Var(&opts.penWidth, "pen-width", 0, "Border width in pixels")
	f.StringVar(&opts.envPath, "env", "", "Path to the .env file")
	_ = cmd.MarkFlagRequired("screen")

	return cmd
}

func runWithOptions(opts replayOptions, stdin io.Reader, stdout io.Writer) error {
	if opts.verbose {
		logutil.Verbose()
	} else {
		log.SetOutput(io.Discard)
	}

	origin, err := parsePoint(opts.origin)
	if err != nil {
		return fmt.Errorf("--origin: %w", err)
	}

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			EnvPath:          opts.envPath,
			PenColorOverride: opts.penColor,
			PenWidthOverride: opts.penWidth,
		},
		SkipClipboard: opts.stdout,
	})
	if err != nil {
		return err
	}

	screenImg, err := readPNG(opts.screenPath)
	if err != nil {
		return err
	}

	script, err := openScript(opts.scriptPath, stdin)
	if err != nil {
		return err
	}
	defer script.Close()
	steps, err := parseScript(script)
	if err != nil {
		return err
	}

	var sink publish.Sink = clipboard.Sink{}
	if opts.stdout {
		sink = publish.PNGSink{W: stdout}
	}

	res, _, err := replay(screenImg, origin, steps, runtimeinit.Pen(cfg), sink)
	if err != nil {
		return err
	}
	log.Printf("Replay committed %v", res.Rect)
	return nil
}

// headlessWindow places the overlay over the whole screen image.
type headlessWindow struct {
	bounds image.Rectangle
	hidden bool
}

func (w *headlessWindow) Hide()                         { w.hidden = true }
func (w *headlessWindow) ClientBounds() image.Rectangle { return w.bounds }

// screenProvider serves captures out of a still image positioned at origin.
func screenProvider(src image.Image, origin image.Point) snapshot.Provider {
	return snapshot.ProviderFunc(func(bounds image.Rectangle) (*image.RGBA, error) {
		local := bounds.Sub(origin)
		if !local.In(src.Bounds()) {
			return nil, fmt.Errorf("capture %v outside screen %v", bounds, src.Bounds().Add(origin))
		}
		img := image.NewRGBA(bounds)
		draw.Draw(img, bounds, src, local.Min, draw.Src)
		return img, nil
	})
}

// replay feeds Shown followed by every step to a fresh session and returns
// the session result along with the last overlay frame.
func replay(screenImg image.Image, origin image.Point, steps []events.Event, pen render.Pen, sink publish.Sink) (session.Result, *image.RGBA, error) {
	size := screenImg.Bounds().Size()
	win := &headlessWindow{bounds: image.Rectangle{Min: origin, Max: origin.Add(size)}}
	surface := render.NewImageSurface(image.Rectangle{Max: size})

	s, err := session.New(session.Options{
		Window:  win,
		Capture: screenProvider(screenImg, origin),
		Surface: surface,
		Sink:    sink,
		Pen:     pen,
	})
	if err != nil {
		return session.Result{}, nil, err
	}

	if err := s.Handle(events.Shown{}); err != nil {
		return session.Result{}, nil, err
	}
	// The first frame of a real overlay is a full expose.
	if err := s.Handle(events.Expose{}); err != nil {
		return session.Result{}, nil, err
	}

	for i, ev := range steps {
		if s.Done() {
			log.Printf("Ignoring %d trailing step(s) after the session ended", len(steps)-i)
			break
		}
		if err := s.Handle(ev); err != nil {
			return s.Result(), surface.Image(), fmt.Errorf("step %d (%s): %w", i+1, ev.Type(), err)
		}
	}

	if !s.Done() {
		return session.Result{}, surface.Image(), errors.New("script ended before the selection was committed")
	}
	res := s.Result()
	if res.Cancelled {
		return res, surface.Image(), session.ErrSelectionCancelled
	}
	return res, surface.Image(), res.Err
}

// parseScript reads one gesture per line:
//
//	down left|right|middle X Y
//	move X Y
//	key escape|other
//	expose [X0 Y0 X1 Y1]
//	hide
//
// Blank lines and lines starting with # are skipped. Coordinates are
// overlay-local.
func parseScript(r io.Reader) ([]events.Event, error) {
	var steps []events.Event
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		ev, err := parseStep(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		steps = append(steps, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return steps, nil
}

func parseStep(fields []string) (events.Event, error) {
	verb, args := strings.ToLower(fields[0]), fields[1:]
	switch verb {
	case "down":
		if len(args) != 3 {
			return nil, fmt.Errorf("down wants BUTTON X Y, got %q", strings.Join(args, " "))
		}
		btn, err := parseButton(args[0])
		if err != nil {
			return nil, err
		}
		p, err := parseCoords(args[1:])
		if err != nil {
			return nil, err
		}
		return events.MouseDown{Button: btn, Point: p}, nil
	case "move":
		if len(args) != 2 {
			return nil, fmt.Errorf("move wants X Y, got %q", strings.Join(args, " "))
		}
		p, err := parseCoords(args)
		if err != nil {
			return nil, err
		}
		return events.MouseMove{Point: p}, nil
	case "key":
		if len(args) != 1 {
			return nil, errors.New("key wants exactly one key name")
		}
		if strings.EqualFold(args[0], "escape") || strings.EqualFold(args[0], "esc") {
			return events.KeyDown{Key: events.KeyEscape}, nil
		}
		return events.KeyDown{Key: events.KeyOther}, nil
	case "expose":
		switch len(args) {
		case 0:
			return events.Expose{}, nil
		case 4:
			lo, err := parseCoords(args[:2])
			if err != nil {
				return nil, err
			}
			hi, err := parseCoords(args[2:])
			if err != nil {
				return nil, err
			}
			return events.Expose{Region: image.Rectangle{Min: lo, Max: hi}.Canon()}, nil
		default:
			return nil, errors.New("expose wants no arguments or X0 Y0 X1 Y1")
		}
	case "hide":
		return events.Hidden{}, nil
	default:
		return nil, fmt.Errorf("unknown step %q", verb)
	}
}

func parseButton(s string) (events.Button, error) {
	switch strings.ToLower(s) {
	case "left":
		return events.ButtonLeft, nil
	case "right":
		return events.ButtonRight, nil
	case "middle":
		return events.ButtonMiddle, nil
	}
	return events.ButtonNone, fmt.Errorf("unknown button %q", s)
}

func parseCoords(args []string) (image.Point, error) {
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return image.Point{}, fmt.Errorf("bad x %q: %w", args[0], err)
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return image.Point{}, fmt.Errorf("bad y %q: %w", args[1], err)
	}
	return image.Pt(x, y), nil
}

func parsePoint(s string) (image.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return image.Point{}, fmt.Errorf("want X,Y, got %q", s)
	}
	return parseCoords([]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])})
}

func openScript(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script %s: %w", path, err)
	}
	return f, nil
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid PNG: %w", path, err)
	}
	return img, nil
}
