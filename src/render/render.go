// Package render repaints the overlay from the frozen snapshot. Mouse moves
// only restore the two strips that the moving border edges can touch; the
// interior of a large selection is never repainted.
package render

import (
	"image"
	"image/color"
	"log"

	"screen-snip/src/geometry"
	"screen-snip/src/snapshot"
)

// Pen is the immutable border style for a session.
type Pen struct {
	Color color.RGBA
	Width float64
}

// DefaultPen is a 2.5px blue border.
func DefaultPen() Pen {
	return Pen{Color: color.RGBA{B: 0xff, A: 0xff}, Width: 2.5}
}

// Stroke returns the border thickness in whole pixels.
func (p Pen) Stroke() int { return geometry.StrokeWidth(p.Width) }

// Surface is a live drawing context on the overlay window.
type Surface interface {
	snapshot.Target
	DrawRectangleOutline(r image.Rectangle, c color.Color, width float64)
}

// Flusher is implemented by surfaces that buffer drawing and present it in
// one step. The renderer flushes once at the end of every paint pass.
type Flusher interface {
	Flush() error
}

// Background is the pixel source that damaged areas are restored from.
// *snapshot.Snapshot implements it.
type Background interface {
	Bounds() image.Rectangle
	Blit(dst snapshot.Target, sr, dr image.Rectangle)
}

// Renderer draws the selection border with a fixed pen.
type Renderer struct {
	pen Pen
}

// NewRenderer returns a renderer using pen for every border it draws.
func NewRenderer(pen Pen) *Renderer {
	return &Renderer{pen: pen}
}

// Pen returns the renderer's pen.
func (r *Renderer) Pen() Pen { return r.pen }

// OnMove repaints after the live corner moved from prev to next. Both damage
// strips are restored before the new border is drawn, and the whole pass is
// presented with a single flush.
func (r *Renderer) OnMove(s Surface, bg Background, anchor, prev, next image.Point) error {
	pad := r.pen.Stroke()
	for _, region := range geometry.DamageRegions(anchor, prev, next) {
		damaged := geometry.Inflate(region, pad)
		bg.Blit(s, damaged, damaged)
	}
	s.DrawRectangleOutline(geometry.Normalize(anchor, next), r.pen.Color, r.pen.Width)
	return flush(s)
}

// OnExpose restores region from the background and, when showBorder is
// set, draws border on top. Used for paint requests from the window system.
func (r *Renderer) OnExpose(s Surface, bg Background, region, border image.Rectangle, showBorder bool) error {
	region = region.Intersect(bg.Bounds())
	if !region.Empty() {
		bg.Blit(s, region, region)
	}
	if showBorder {
		s.DrawRectangleOutline(border, r.pen.Color, r.pen.Width)
	}
	return flush(s)
}

// OnRepaintAll restores the entire surface and draws the border for
// anchor/cursor when a drag is in progress.
func (r *Renderer) OnRepaintAll(s Surface, bg Background, anchor, cursor image.Point, dragging bool) error {
	log.Printf("RENDER: full repaint, dragging=%v", dragging)
	return r.OnExpose(s, bg, bg.Bounds(), geometry.Normalize(anchor, cursor), dragging)
}

func flush(s Surface) error {
	if f, ok := s.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
