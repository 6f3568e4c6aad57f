package screenshot

import (
	"fmt"
	"image"
	"log"

	"github.com/kbinani/screenshot"
)

// Displays returns the bounds of every active display in screen coordinates.
func Displays() ([]image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays found")
	}
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out, nil
}

// VirtualBounds returns the union of all display bounds. The overlay spans
// exactly this rectangle, so its origin may be negative.
func VirtualBounds() (image.Rectangle, error) {
	displays, err := Displays()
	if err != nil {
		return image.Rectangle{}, err
	}
	return union(displays), nil
}

func union(rs []image.Rectangle) image.Rectangle {
	var u image.Rectangle
	for i, r := range rs {
		if i == 0 {
			u = r
			continue
		}
		u = u.Union(r)
	}
	return u
}

// Capturer reads screen pixels through the platform capture API.
type Capturer struct{}

// CaptureRect captures bounds (screen coordinates) in one call.
func (Capturer) CaptureRect(bounds image.Rectangle) (*image.RGBA, error) {
	if bounds.Empty() {
		return nil, fmt.Errorf("invalid capture bounds %v", bounds)
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %v: %w", bounds, err)
	}
	log.Printf("SCREENSHOT: captured %dx%d at %v", bounds.Dx(), bounds.Dy(), bounds.Min)
	return img, nil
}
