// Package publish crops the committed selection out of the snapshot and
// hands it to the clipboard.
package publish

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
)

// ErrEmptySelection is returned when the committed rectangle has no pixels
// inside the snapshot. Nothing is written to the clipboard.
var ErrEmptySelection = errors.New("empty selection")

// Sink accepts the published image. Implementations make one synchronous
// attempt per call.
type Sink interface {
	SetImage(img image.Image) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(img image.Image) error

func (f SinkFunc) SetImage(img image.Image) error { return f(img) }

// PNGSink encodes each image as PNG to W. Used where the image goes to a
// pipe or socket instead of the clipboard.
type PNGSink struct {
	W io.Writer
}

func (s PNGSink) SetImage(img image.Image) error {
	if err := png.Encode(s.W, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Source is the pixel buffer a selection is cropped from.
type Source interface {
	Bounds() image.Rectangle
	Crop(r image.Rectangle) (*image.RGBA, error)
}

// ClipboardError reports that the sink rejected the image. The selection
// still counts as finished; the image just did not arrive.
type ClipboardError struct {
	Size image.Point
	Err  error
}

func (e *ClipboardError) Error() string {
	return fmt.Sprintf("clipboard write of %dx%d image: %v", e.Size.X, e.Size.Y, e.Err)
}

func (e *ClipboardError) Unwrap() error { return e.Err }

// Publisher delivers crops to a single sink.
type Publisher struct {
	sink Sink
}

// New returns a Publisher writing to sink.
func New(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

// Commit clamps rect to the source bounds, copies exactly that area and
// writes it to the sink once. The cropped image is returned even when the
// sink fails.
func (p *Publisher) Commit(src Source, rect image.Rectangle) (*image.RGBA, error) {
	clamped := rect.Intersect(src.Bounds())
	if clamped.Empty() {
		log.Printf("PUBLISH: selection %v has no pixels inside %v", rect, src.Bounds())
		return nil, ErrEmptySelection
	}

	img, err := src.Crop(clamped)
	if err != nil {
		return nil, fmt.Errorf("crop %v: %w", clamped, err)
	}
	if p.sink == nil {
		return img, &ClipboardError{Size: clamped.Size(), Err: errors.New("no clipboard sink")}
	}
	if err := p.sink.SetImage(img); err != nil {
		log.Printf("PUBLISH: clipboard write failed: %v", err)
		return img, &ClipboardError{Size: clamped.Size(), Err: err}
	}

	log.Printf("PUBLISH: published %dx%d from %v", clamped.Dx(), clamped.Dy(), clamped)
	return img, nil
}
