// Package snapshot owns the frozen copy of the desktop taken when the
// overlay appears. A Snapshot is written once by Capture and is read-only
// afterwards; it lives exactly as long as one visible overlay session.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
)

// BytesPerPixel is the size of one RGBA pixel.
const BytesPerPixel = 4

// ErrReleased is returned by operations on a snapshot after Release.
var ErrReleased = errors.New("snapshot released")

// Provider reads the pixels of a screen region. Bounds are in screen
// coordinates.
type Provider interface {
	CaptureRect(bounds image.Rectangle) (*image.RGBA, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(bounds image.Rectangle) (*image.RGBA, error)

func (f ProviderFunc) CaptureRect(bounds image.Rectangle) (*image.RGBA, error) { return f(bounds) }

// Target is a drawing surface that can receive pixels from an image.
type Target interface {
	BlitImage(src image.Image, sr, dr image.Rectangle)
}

// CaptureError reports a failed screen capture. The overlay must not be
// shown when it occurs.
type CaptureError struct {
	Bounds image.Rectangle
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %v: %v", e.Bounds, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Snapshot is an immutable pixel buffer in overlay-local coordinates: its
// top-left pixel is (0, 0) regardless of where on the virtual screen it
// was taken.
type Snapshot struct {
	img    *image.RGBA
	origin image.Point
}

// Capture reads the given screen region exactly once. The resulting image
// must cover the requested size; anything else is reported as a
// CaptureError.
func Capture(p Provider, bounds image.Rectangle) (*Snapshot, error) {
	if p == nil {
		return nil, &CaptureError{Bounds: bounds, Err: errors.New("no capture provider")}
	}
	if bounds.Empty() {
		return nil, &CaptureError{Bounds: bounds, Err: errors.New("empty capture bounds")}
	}

	img, err := p.CaptureRect(bounds)
	if err != nil {
		return nil, &CaptureError{Bounds: bounds, Err: err}
	}
	if img == nil {
		return nil, &CaptureError{Bounds: bounds, Err: errors.New("provider returned no image")}
	}
	if img.Rect.Size() != bounds.Size() {
		return nil, &CaptureError{
			Bounds: bounds,
			Err:    fmt.Errorf("provider returned %v, expected size %v", img.Rect.Size(), bounds.Size()),
		}
	}

	// Rebase without copying; RGBA pixel offsets are relative to Rect.Min.
	img.Rect = img.Rect.Sub(img.Rect.Min)
	log.Printf("SNAPSHOT: captured %dx%d at %v", img.Rect.Dx(), img.Rect.Dy(), bounds.Min)
	return &Snapshot{img: img, origin: bounds.Min}, nil
}

// FromImage wraps an already captured image, copying it so that later
// writes by the caller cannot reach the snapshot.
func FromImage(src image.Image, origin image.Point) *Snapshot {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Rect, src, b.Min, draw.Src)
	return &Snapshot{img: img, origin: origin}
}

// Bounds returns the local bounds, always anchored at (0, 0). A released
// snapshot has empty bounds.
func (s *Snapshot) Bounds() image.Rectangle {
	if s == nil || s.img == nil {
		return image.Rectangle{}
	}
	return s.img.Rect
}

// Origin returns the screen position of the snapshot's top-left pixel.
func (s *Snapshot) Origin() image.Point { return s.origin }

// ToScreen converts an overlay-local rectangle to screen coordinates.
func (s *Snapshot) ToScreen(r image.Rectangle) image.Rectangle { return r.Add(s.origin) }

// Blit copies sr from the snapshot to dr on dst. The two rectangles have
// the same size; requests reaching outside the snapshot are clipped to the
// intersection and never fail.
func (s *Snapshot) Blit(dst Target, sr, dr image.Rectangle) {
	if s == nil || s.img == nil || dst == nil {
		return
	}
	offset := dr.Min.Sub(sr.Min)
	clipped := sr.Intersect(s.img.Rect)
	if clipped.Empty() {
		return
	}
	dst.BlitImage(s.img, clipped, clipped.Add(offset))
}

// Crop copies r, clipped to the snapshot bounds, into a new image of
// exactly that size anchored at (0, 0).
func (s *Snapshot) Crop(r image.Rectangle) (*image.RGBA, error) {
	if s == nil || s.img == nil {
		return nil, ErrReleased
	}
	r = r.Intersect(s.img.Rect)
	if r.Empty() {
		return image.NewRGBA(image.Rectangle{}), nil
	}

	cropped := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	rowBytes := r.Dx() * BytesPerPixel
	for y := 0; y < r.Dy(); y++ {
		srcStart := s.img.PixOffset(r.Min.X, r.Min.Y+y)
		dstStart := y * cropped.Stride
		copy(cropped.Pix[dstStart:dstStart+rowBytes], s.img.Pix[srcStart:srcStart+rowBytes])
	}
	return cropped, nil
}

// Release drops the pixel buffer. It is safe to call more than once.
func (s *Snapshot) Release() {
	if s == nil || s.img == nil {
		return
	}
	log.Printf("SNAPSHOT: released %dx%d", s.img.Rect.Dx(), s.img.Rect.Dy())
	s.img = nil
}

// Released reports whether Release has been called.
func (s *Snapshot) Released() bool { return s == nil || s.img == nil }
