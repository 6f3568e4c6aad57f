package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"golang.org/x/exp/shiny/screen"

	"screen-snip/src/events"
	"screen-snip/src/gui"
	"screen-snip/src/publish"
	"screen-snip/src/render"
	"screen-snip/src/session"
	"screen-snip/src/snapshot"
)

const windowTitle = "Screen Snip"

// Request configures one selection.
type Request struct {
	Pen render.Pen
	// Sink receives the published image; nil uses the selector's sink.
	Sink publish.Sink
}

// Selector defines a synchronous region-selection API owned by the event loop.
// The call is blocking and MUST be invoked only from the single event-loop goroutine.
// A cancelled selection returns session.ErrSelectionCancelled.
type Selector interface {
	Select(ctx context.Context, req Request) (session.Result, error)
}

type Options struct {
	// Native selects the Win32 overlay window. Screen is then unused.
	Native  bool
	Screen  screen.Screen
	Capture snapshot.Provider
	Sink    publish.Sink
	// Bounds returns the area to cover in screen coordinates.
	Bounds func() (image.Rectangle, error)
}

// NewSelector returns a Selector that shows the overlay in a native window
// when opts.Native is set and in a shiny window otherwise.
func NewSelector(opts Options) (Selector, error) {
	if opts.Native && !gui.NativeSupported {
		return nil, gui.ErrNativeUnsupported
	}
	if (!opts.Native && opts.Screen == nil) || opts.Capture == nil || opts.Bounds == nil {
		return nil, errors.New("overlay: Screen, Capture and Bounds are required")
	}
	return &selector{opts: opts}, nil
}

type selector struct {
	opts Options
}

func (s *selector) newFrame(bounds image.Rectangle) (gui.Overlay, error) {
	if s.opts.Native {
		return gui.NewNativeFrame(bounds)
	}
	f, err := gui.NewFrame(s.opts.Screen, bounds)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *selector) Select(ctx context.Context, req Request) (session.Result, error) {
	if err := ctx.Err(); err != nil {
		return session.Result{}, err
	}
	bounds, err := s.opts.Bounds()
	if err != nil {
		return session.Result{}, fmt.Errorf("overlay bounds: %w", err)
	}

	frame, err := s.newFrame(bounds)
	if err != nil {
		return session.Result{}, err
	}
	defer frame.Release()

	sink := req.Sink
	if sink == nil {
		sink = s.opts.Sink
	}
	sess, err := session.New(session.Options{
		Window:  frame,
		Capture: s.opts.Capture,
		Surface: frame,
		Sink:    sink,
		Pen:     req.Pen,
	})
	if err != nil {
		return session.Result{}, err
	}

	// Capture before the window exists so the overlay never sees itself.
	if err := sess.Handle(events.Shown{}); err != nil {
		return session.Result{}, err
	}
	if err := frame.Open(windowTitle); err != nil {
		_ = sess.Handle(events.Hidden{})
		return session.Result{}, err
	}
	log.Printf("OVERLAY: showing over %v", bounds)

	stop := context.AfterFunc(ctx, frame.Close)
	defer stop()

	runErr := frame.Run(sess)
	if !sess.Done() {
		// The window went away without the session noticing.
		_ = sess.Handle(events.Hidden{})
	}
	res := sess.Result()
	switch {
	case runErr != nil:
		return res, runErr
	case res.Cancelled && ctx.Err() != nil:
		return res, ctx.Err()
	case res.Cancelled:
		return res, session.ErrSelectionCancelled
	}
	log.Printf("OVERLAY: selected %v", res.Rect)
	return res, nil
}
