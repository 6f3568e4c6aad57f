package overlay

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"

	"screen-snip/src/gui"
	"screen-snip/src/publish"
	"screen-snip/src/render"
	"screen-snip/src/session"
	"screen-snip/src/snapshot"
)

type fakeBuffer struct{ img *image.RGBA }

func (b *fakeBuffer) Release()                { b.img = nil }
func (b *fakeBuffer) Size() image.Point       { return b.img.Rect.Size() }
func (b *fakeBuffer) Bounds() image.Rectangle { return b.img.Rect }
func (b *fakeBuffer) RGBA() *image.RGBA       { return b.img }

// fakeWindow implements the parts of screen.Window the overlay uses; the
// embedded nil interface panics on anything else.
type fakeWindow struct {
	screen.Window
	events   chan interface{}
	uploads  int
	released bool
}

func (w *fakeWindow) NextEvent() interface{}                                       { return <-w.events }
func (w *fakeWindow) Send(e interface{})                                           { w.events <- e }
func (w *fakeWindow) Upload(dp image.Point, src screen.Buffer, sr image.Rectangle) { w.uploads++ }
func (w *fakeWindow) Publish() screen.PublishResult                                { return screen.PublishResult{} }
func (w *fakeWindow) Release()                                                     { w.released = true }

type fakeScreen struct {
	screen.Screen
	script []interface{}
	order  *[]string
	win    *fakeWindow
	opts   screen.NewWindowOptions
}

func (s *fakeScreen) NewBuffer(size image.Point) (screen.Buffer, error) {
	return &fakeBuffer{img: image.NewRGBA(image.Rectangle{Max: size})}, nil
}

func (s *fakeScreen) NewWindow(opts *screen.NewWindowOptions) (screen.Window, error) {
	*s.order = append(*s.order, "window")
	s.opts = *opts
	s.win = &fakeWindow{events: make(chan interface{}, len(s.script)+4)}
	for _, e := range s.script {
		s.win.events <- e
	}
	return s.win, nil
}

type fakeSink struct{ images []image.Image }

func (f *fakeSink) SetImage(img image.Image) error {
	f.images = append(f.images, img)
	return nil
}

func press(b mouse.Button, x, y float32) mouse.Event {
	return mouse.Event{X: x, Y: y, Button: b, Direction: mouse.DirPress}
}

func moveTo(x, y float32) mouse.Event { return mouse.Event{X: x, Y: y} }

type fixture struct {
	order  []string
	scr    *fakeScreen
	sink   *fakeSink
	sel    Selector
	bounds image.Rectangle
}

func newFixture(t *testing.T, script []interface{}, captureErr error) *fixture {
	t.Helper()
	f := &fixture{sink: &fakeSink{}, bounds: image.Rect(-100, 0, 300, 200)}
	f.scr = &fakeScreen{script: script, order: &f.order}
	capture := snapshot.ProviderFunc(func(b image.Rectangle) (*image.RGBA, error) {
		f.order = append(f.order, "capture")
		if captureErr != nil {
			return nil, captureErr
		}
		return image.NewRGBA(b), nil
	})
	sel, err := NewSelector(Options{
		Screen:  f.scr,
		Capture: capture,
		Sink:    f.sink,
		Bounds:  func() (image.Rectangle, error) { return f.bounds, nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	f.sel = sel
	return f
}

func TestSelectCommits(t *testing.T) {
	f := newFixture(t, []interface{}{
		paint.Event{},
		press(mouse.ButtonLeft, 10, 20),
		moveTo(50, 60),
		press(mouse.ButtonLeft, 50, 60),
	}, nil)

	res, err := f.sel.Select(context.Background(), Request{Pen: render.DefaultPen()})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if want := image.Rect(-90, 20, -50, 60); res.Rect != want {
		t.Errorf("rect = %v, want %v", res.Rect, want)
	}
	if len(f.sink.images) != 1 {
		t.Errorf("sink called %d times", len(f.sink.images))
	}
	if len(f.order) != 2 || f.order[0] != "capture" || f.order[1] != "window" {
		t.Errorf("order = %v, want capture before window", f.order)
	}
	if f.scr.opts.Width != 400 || f.scr.opts.Height != 200 {
		t.Errorf("window size = %dx%d", f.scr.opts.Width, f.scr.opts.Height)
	}
	if f.scr.win.uploads == 0 || !f.scr.win.released {
		t.Error("window should have been painted and released")
	}
}

func TestSelectUsesRequestSink(t *testing.T) {
	f := newFixture(t, []interface{}{
		press(mouse.ButtonLeft, 0, 0),
		moveTo(5, 5),
		press(mouse.ButtonLeft, 5, 5),
	}, nil)
	var got image.Image
	sink := publish.SinkFunc(func(img image.Image) error { got = img; return nil })

	if _, err := f.sel.Select(context.Background(), Request{Pen: render.DefaultPen(), Sink: sink}); err != nil {
		t.Fatal(err)
	}
	if got == nil || len(f.sink.images) != 0 {
		t.Error("request sink should replace the default sink")
	}
}

func TestSelectEscapeCancels(t *testing.T) {
	f := newFixture(t, []interface{}{
		press(mouse.ButtonLeft, 10, 20),
		key.Event{Code: key.CodeEscape, Direction: key.DirPress},
	}, nil)

	_, err := f.sel.Select(context.Background(), Request{Pen: render.DefaultPen()})
	if !errors.Is(err, session.ErrSelectionCancelled) {
		t.Errorf("err = %v, want ErrSelectionCancelled", err)
	}
	if len(f.sink.images) != 0 {
		t.Error("cancelled selection must not publish")
	}
}

func TestSelectCaptureFailureShowsNothing(t *testing.T) {
	f := newFixture(t, nil, errors.New("permission denied"))

	_, err := f.sel.Select(context.Background(), Request{Pen: render.DefaultPen()})
	var ce *snapshot.CaptureError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CaptureError", err)
	}
	if f.scr.win != nil {
		t.Error("no window may be created when capture fails")
	}
}

func TestSelectContextCancel(t *testing.T) {
	f := newFixture(t, []interface{}{paint.Event{}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := f.sel.Select(ctx, Request{Pen: render.DefaultPen()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewSelectorValidates(t *testing.T) {
	if _, err := NewSelector(Options{}); err == nil {
		t.Error("expected error for empty options")
	}
}

func TestNewSelectorNative(t *testing.T) {
	capture := snapshot.ProviderFunc(func(b image.Rectangle) (*image.RGBA, error) { return image.NewRGBA(b), nil })
	bounds := func() (image.Rectangle, error) { return image.Rect(0, 0, 10, 10), nil }

	_, err := NewSelector(Options{Native: true, Capture: capture, Bounds: bounds})
	if gui.NativeSupported {
		if err != nil {
			t.Fatalf("native selector without a shiny screen: %v", err)
		}
		return
	}
	if !errors.Is(err, gui.ErrNativeUnsupported) {
		t.Fatalf("err = %v, want ErrNativeUnsupported", err)
	}
}
