// Package geometry holds the rectangle math used by the selection overlay.
// Points and rectangles are overlay-local and may be negative.
package geometry

import (
	"image"
	"math"
)

// Normalize returns the rectangle spanned by two opposite corners, with
// Min holding the smaller coordinates. Equal points give an empty but
// valid rectangle.
func Normalize(p1, p2 image.Point) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(min(p1.X, p2.X), min(p1.Y, p2.Y)),
		Max: image.Pt(max(p1.X, p2.X), max(p1.Y, p2.Y)),
	}
}

// BoundingBox returns the smallest rectangle containing all three points.
func BoundingBox(a, b, c image.Point) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(min(a.X, b.X, c.X), min(a.Y, b.Y, c.Y)),
		Max: image.Pt(max(a.X, b.X, c.X), max(a.Y, b.Y, c.Y)),
	}
}

// DamageRegions returns the two strips that change when the free corner of
// a selection border moves from prev to next while anchor stays fixed.
// The first strip spans the full bounding-box width between the old and new
// cursor rows, the second spans the full bounding-box height between the
// old and new cursor columns. Both must be inflated by the stroke padding
// before use.
func DamageRegions(anchor, prev, next image.Point) [2]image.Rectangle {
	bounds := BoundingBox(anchor, prev, next)
	return [2]image.Rectangle{
		{
			Min: image.Pt(bounds.Min.X, min(prev.Y, next.Y)),
			Max: image.Pt(bounds.Max.X, max(prev.Y, next.Y)),
		},
		{
			Min: image.Pt(min(prev.X, next.X), bounds.Min.Y),
			Max: image.Pt(max(prev.X, next.X), bounds.Max.Y),
		},
	}
}

// Inflate grows r by n pixels on every side.
func Inflate(r image.Rectangle, n int) image.Rectangle {
	d := image.Pt(n, n)
	return image.Rectangle{Min: r.Min.Sub(d), Max: r.Max.Add(d)}
}

// MaxStrokeWidth bounds the pixel width of a pen. No display is wider, and
// it keeps the conversion to int defined for huge or infinite widths.
const MaxStrokeWidth = 1 << 15

// StrokeWidth converts a pen width to whole pixels, rounding up. A visible
// pen is never thinner than one pixel.
func StrokeWidth(width float64) int {
	if width <= 1 || math.IsNaN(width) {
		return 1
	}
	if width >= MaxStrokeWidth {
		return MaxStrokeWidth
	}
	return int(math.Ceil(width))
}

// OutlineStrips returns the four filled strips that make up a rectangle
// outline of the given stroke width, centred on the edges of r. The strips
// overlap at the corners; filling them with an opaque colour in any order
// gives the same pixels.
func OutlineStrips(r image.Rectangle, stroke int) [4]image.Rectangle {
	if stroke < 1 {
		stroke = 1
	}
	lo := stroke / 2
	hi := stroke - lo
	return [4]image.Rectangle{
		image.Rect(r.Min.X-lo, r.Min.Y-lo, r.Max.X+hi, r.Min.Y+hi),
		image.Rect(r.Min.X-lo, r.Max.Y-lo, r.Max.X+hi, r.Max.Y+hi),
		image.Rect(r.Min.X-lo, r.Min.Y-lo, r.Min.X+hi, r.Max.Y+hi),
		image.Rect(r.Max.X-lo, r.Min.Y-lo, r.Max.X+hi, r.Max.Y+hi),
	}
}

// OutlineBounds is the union of OutlineStrips(r, stroke).
func OutlineBounds(r image.Rectangle, stroke int) image.Rectangle {
	if stroke < 1 {
		stroke = 1
	}
	lo := stroke / 2
	hi := stroke - lo
	return image.Rect(r.Min.X-lo, r.Min.Y-lo, r.Max.X+hi, r.Max.Y+hi)
}
