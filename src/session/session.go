package session

import (
	"errors"
	"fmt"
	"image"
	"log"

	"screen-snip/src/events"
	"screen-snip/src/publish"
	"screen-snip/src/render"
	"screen-snip/src/selection"
	"screen-snip/src/snapshot"
)

var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrNoSnapshot         = errors.New("no snapshot captured")
)

// Window is the part of the overlay window a session needs.
type Window interface {
	Hide()
	// ClientBounds returns the client area in screen coordinates.
	ClientBounds() image.Rectangle
}

type Options struct {
	Window  Window
	Capture snapshot.Provider
	Surface render.Surface
	Sink    publish.Sink
	Pen     render.Pen
	// OnPublish is called after a successful clipboard write with the
	// published pixels and their rectangle in screen coordinates.
	OnPublish func(img *image.RGBA, screenRect image.Rectangle)
}

// Result is the outcome of a finished session.
type Result struct {
	// Rect is the committed rectangle in screen coordinates.
	Rect      image.Rectangle
	Image     *image.RGBA
	Err       error
	Cancelled bool
}

// Session drives one overlay from Shown to hide. Events must be delivered
// serially in arrival order.
type Session struct {
	opts      Options
	renderer  *render.Renderer
	publisher *publish.Publisher

	snap  *snapshot.Snapshot
	state selection.State

	done   bool
	result Result
}

func New(opts Options) (*Session, error) {
	if opts.Window == nil {
		return nil, errors.New("Window is required")
	}
	if opts.Capture == nil {
		return nil, errors.New("Capture is required")
	}
	if opts.Surface == nil {
		return nil, errors.New("Surface is required")
	}
	return &Session{
		opts:      opts,
		renderer:  render.NewRenderer(opts.Pen),
		publisher: publish.New(opts.Sink),
	}, nil
}

// Handle processes one event. A returned CaptureError means the overlay
// must not be shown; a ClipboardError means the session finished but the
// image was not delivered.
func (s *Session) Handle(ev events.Event) error {
	switch e := ev.(type) {
	case events.Shown:
		return s.show()
	case events.Hidden:
		s.teardown()
		s.finish(Result{Cancelled: true})
		return nil
	case events.MouseDown:
		switch e.Button {
		case events.ButtonLeft:
			return s.advance(e.Point)
		case events.ButtonRight:
			return s.cancel()
		}
		return nil
	case events.MouseMove:
		return s.move(e.Point)
	case events.KeyDown:
		if e.Key == events.KeyEscape {
			log.Printf("SESSION: escape pressed, hiding overlay")
			s.hide()
			s.finish(Result{Cancelled: true})
		}
		return nil
	case events.Expose:
		return s.expose(e.Region)
	default:
		log.Printf("SESSION: ignoring unknown event %s", ev.Type())
		return nil
	}
}

// Phase returns the selection phase.
func (s *Session) Phase() selection.Phase { return s.state.Phase() }

// HasSnapshot reports whether a live snapshot is owned by the session.
func (s *Session) HasSnapshot() bool { return !s.snap.Released() }

// Done reports whether the session has ended, by commit or cancel.
func (s *Session) Done() bool { return s.done }

// Result returns the outcome once Done is true.
func (s *Session) Result() Result { return s.result }

func (s *Session) show() error {
	s.teardown()
	s.done = false
	s.result = Result{}

	bounds := s.opts.Window.ClientBounds()
	snap, err := snapshot.Capture(s.opts.Capture, bounds)
	if err != nil {
		log.Printf("SESSION: capture failed, overlay will not show: %v", err)
		s.finish(Result{Err: err})
		return err
	}
	s.snap = snap
	log.Printf("SESSION: shown over %v", bounds)
	return nil
}

func (s *Session) advance(p image.Point) error {
	if !s.HasSnapshot() {
		return ErrNoSnapshot
	}
	tr, ok := s.state.Advance(p)
	if !ok {
		return nil
	}
	if tr.To != selection.Committed {
		log.Printf("SESSION: anchor set at %v", p)
		return nil
	}
	return s.commit(tr.Rect)
}

func (s *Session) commit(rect image.Rectangle) error {
	screenRect := s.snap.ToScreen(rect.Intersect(s.snap.Bounds()))
	img, err := s.publisher.Commit(s.snap, rect)
	if err == nil && s.opts.OnPublish != nil {
		s.opts.OnPublish(img, screenRect)
	}

	// The gesture is complete whether or not the clipboard took the image.
	s.hide()
	s.finish(Result{Rect: screenRect, Image: img, Err: err})
	if err != nil {
		return err
	}
	log.Printf("SESSION: committed %v", screenRect)
	return nil
}

func (s *Session) cancel() error {
	tr, ok := s.state.Cancel()
	if !ok {
		return nil
	}
	log.Printf("SESSION: drag from %v cancelled", tr.Anchor)
	if !s.HasSnapshot() {
		return nil
	}
	if err := s.renderer.OnRepaintAll(s.opts.Surface, s.snap, tr.Anchor, tr.Cursor, false); err != nil {
		return fmt.Errorf("repaint after cancel: %w", err)
	}
	return nil
}

func (s *Session) move(p image.Point) error {
	tr, ok := s.state.Move(p)
	if !ok || tr.Prev == tr.Cursor {
		return nil
	}
	if !s.HasSnapshot() {
		return ErrNoSnapshot
	}
	if err := s.renderer.OnMove(s.opts.Surface, s.snap, tr.Anchor, tr.Prev, tr.Cursor); err != nil {
		return fmt.Errorf("repaint after move: %w", err)
	}
	return nil
}

func (s *Session) expose(region image.Rectangle) error {
	if !s.HasSnapshot() {
		return nil
	}
	border, dragging := s.state.Border()
	var err error
	if region.Empty() {
		err = s.renderer.OnRepaintAll(s.opts.Surface, s.snap, s.state.Anchor(), s.state.Cursor(), dragging)
	} else {
		err = s.renderer.OnExpose(s.opts.Surface, s.snap, region, border, dragging)
	}
	if err != nil {
		return fmt.Errorf("expose %v: %w", region, err)
	}
	return nil
}

func (s *Session) hide() {
	s.opts.Window.Hide()
	s.teardown()
}

// teardown drops the snapshot and returns the machine to Idle.
func (s *Session) teardown() {
	if s.snap != nil {
		s.snap.Release()
		s.snap = nil
	}
	s.state.Reset()
}

func (s *Session) finish(r Result) {
	if s.done {
		return
	}
	s.done = true
	s.result = r
}
