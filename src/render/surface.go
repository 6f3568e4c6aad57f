package render

import (
	"image"
	"image/color"
	"image/draw"

	"screen-snip/src/geometry"
)

// ImageSurface is a Surface backed by an in-memory RGBA image. It is used
// for headless replays and as the back buffer of real windows.
type ImageSurface struct {
	img   *image.RGBA
	dirty image.Rectangle
}

// NewImageSurface allocates a surface covering r.
func NewImageSurface(r image.Rectangle) *ImageSurface {
	return &ImageSurface{img: image.NewRGBA(r)}
}

// WrapImageSurface draws straight into img.
func WrapImageSurface(img *image.RGBA) *ImageSurface {
	return &ImageSurface{img: img}
}

// Image returns the backing image.
func (s *ImageSurface) Image() *image.RGBA { return s.img }

// BlitImage copies sr of src onto dr. Pixels are replaced, not blended.
func (s *ImageSurface) BlitImage(src image.Image, sr, dr image.Rectangle) {
	dr = image.Rectangle{Min: dr.Min, Max: dr.Min.Add(sr.Size())}
	draw.Draw(s.img, dr, src, sr.Min, draw.Src)
	s.markDirty(dr)
}

// DrawRectangleOutline strokes r with an opaque border of the given width
// centred on its edges.
func (s *ImageSurface) DrawRectangleOutline(r image.Rectangle, c color.Color, width float64) {
	stroke := geometry.StrokeWidth(width)
	fill := image.NewUniform(c)
	for _, strip := range geometry.OutlineStrips(r, stroke) {
		draw.Draw(s.img, strip, fill, image.Point{}, draw.Src)
	}
	s.markDirty(geometry.OutlineBounds(r, stroke))
}

// Dirty returns the area touched since the last TakeDirty.
func (s *ImageSurface) Dirty() image.Rectangle { return s.dirty }

// TakeDirty returns the touched area and clears it.
func (s *ImageSurface) TakeDirty() image.Rectangle {
	d := s.dirty
	s.dirty = image.Rectangle{}
	return d
}

func (s *ImageSurface) markDirty(r image.Rectangle) {
	r = r.Intersect(s.img.Rect)
	if r.Empty() {
		return
	}
	s.dirty = s.dirty.Union(r)
}
