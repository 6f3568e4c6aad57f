// Package gui hosts a selection session in an overlay window: it owns the
// back buffer the renderer draws into and feeds window events to the
// session in arrival order. On Windows the overlay is a borderless topmost
// Win32 popup; elsewhere it is a shiny window.
package gui

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"

	"golang.org/x/exp/shiny/screen"

	"screen-snip/src/events"
	"screen-snip/src/render"
)

// window is the subset of screen.Window a Frame uses.
type window interface {
	NextEvent() interface{}
	Send(event interface{})
	Upload(dp image.Point, src screen.Buffer, sr image.Rectangle)
	Publish() screen.PublishResult
	Release()
}

// Handler consumes translated events. Done reports that the session ended.
type Handler interface {
	Handle(ev events.Event) error
	Done() bool
}

// Overlay is a window hosting one selection session. It is both the
// session's window and its drawing surface. Open, Run and Release must be
// called from the same goroutine.
type Overlay interface {
	Hide()
	ClientBounds() image.Rectangle
	BlitImage(src image.Image, sr, dr image.Rectangle)
	DrawRectangleOutline(r image.Rectangle, c color.Color, width float64)
	Flush() error
	Open(title string) error
	Run(h Handler) error
	Close()
	Release()
}

// Frame is one overlay window plus its back buffer. Drawing goes to the
// buffer; Flush uploads only what changed since the last flush.
type Frame struct {
	*render.ImageSurface
	scr    screen.Screen
	bounds image.Rectangle
	buf    screen.Buffer
	hidden bool

	mu  sync.Mutex // guards win against Close from other goroutines
	win window
}

// NewFrame allocates the back buffer for an overlay covering bounds
// (screen coordinates). No window exists until Open.
func NewFrame(s screen.Screen, bounds image.Rectangle) (*Frame, error) {
	buf, err := s.NewBuffer(bounds.Size())
	if err != nil {
		return nil, fmt.Errorf("new buffer %v: %w", bounds.Size(), err)
	}
	f := newFrame(buf, bounds)
	f.scr = s
	return f, nil
}

func newFrame(buf screen.Buffer, bounds image.Rectangle) *Frame {
	return &Frame{
		ImageSurface: render.WrapImageSurface(buf.RGBA()),
		bounds:       bounds,
		buf:          buf,
	}
}

// Open creates the window. Call it after the snapshot was taken so the
// overlay does not capture itself.
func (f *Frame) Open(title string) error {
	if f.scr == nil {
		return fmt.Errorf("frame has no screen")
	}
	w, err := f.scr.NewWindow(&screen.NewWindowOptions{
		Width:  f.bounds.Dx(),
		Height: f.bounds.Dy(),
		Title:  title,
	})
	if err != nil {
		return fmt.Errorf("new window: %w", err)
	}
	f.mu.Lock()
	f.win = w
	f.mu.Unlock()
	return nil
}

// ClientBounds returns the overlay area in screen coordinates.
func (f *Frame) ClientBounds() image.Rectangle { return f.bounds }

// Hide ends the event loop after the current event.
func (f *Frame) Hide() { f.hidden = true }

func (f *Frame) Hidden() bool { return f.hidden }

// Flush presents the dirty part of the back buffer.
func (f *Frame) Flush() error {
	dirty := f.TakeDirty()
	if f.win == nil || dirty.Empty() {
		return nil
	}
	f.win.Upload(dirty.Min, f.buf, dirty)
	f.win.Publish()
	return nil
}

// Close asks the event loop to stop. Safe to call from any goroutine.
func (f *Frame) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.win != nil {
		f.win.Send(closeRequest{})
	}
}

// Run delivers window events to h until the frame is hidden or h is done.
// Errors that end the session are returned; others are logged.
func (f *Frame) Run(h Handler) error {
	if f.win == nil {
		return fmt.Errorf("frame has no window")
	}
	d := dispatcher{h: h}
	for !f.hidden && !d.done() {
		if ev, ok := Translate(f.win.NextEvent()); ok {
			d.deliver(ev)
		}
	}
	return d.err
}

// Release frees the window and the back buffer.
func (f *Frame) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.win != nil {
		f.win.Release()
		f.win = nil
	}
	if f.buf != nil {
		f.buf.Release()
		f.buf = nil
	}
}

var _ Overlay = (*Frame)(nil)

// dispatcher hands events to a Handler and keeps the error that ended the
// session. Errors that do not end it are logged.
type dispatcher struct {
	h   Handler
	err error
}

func (d *dispatcher) done() bool { return d.h == nil || d.h.Done() }

func (d *dispatcher) deliver(ev events.Event) {
	if d.done() {
		return
	}
	err := d.h.Handle(ev)
	if d.h.Done() {
		d.err = err
		return
	}
	if err != nil {
		log.Printf("OVERLAY: %s: %v", ev.Type(), err)
	}
}
