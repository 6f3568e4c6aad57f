package render

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"screen-snip/src/geometry"
	"screen-snip/src/snapshot"
)

func testSnapshot(w, h int) *snapshot.Snapshot {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: uint8(x + y), A: 255})
		}
	}
	return snapshot.FromImage(img, image.Point{})
}

func samePixels(a, b *image.RGBA) bool {
	return a.Rect == b.Rect && bytes.Equal(a.Pix, b.Pix)
}

type op struct {
	kind string
	r    image.Rectangle
}

type recordingSurface struct {
	*ImageSurface
	ops []op
}

func (s *recordingSurface) BlitImage(src image.Image, sr, dr image.Rectangle) {
	s.ops = append(s.ops, op{"blit", dr})
	s.ImageSurface.BlitImage(src, sr, dr)
}

func (s *recordingSurface) DrawRectangleOutline(r image.Rectangle, c color.Color, width float64) {
	s.ops = append(s.ops, op{"border", r})
	s.ImageSurface.DrawRectangleOutline(r, c, width)
}

func (s *recordingSurface) Flush() error {
	s.ops = append(s.ops, op{kind: "flush"})
	return nil
}

// Incremental repaints must leave exactly the pixels a full repaint would.
func TestOnMoveMatchesFullRepaint(t *testing.T) {
	const w, h = 120, 90
	snap := testSnapshot(w, h)
	rng := rand.New(rand.NewSource(3))

	for _, pen := range []Pen{DefaultPen(), {Color: color.RGBA{R: 255, A: 255}, Width: 1}, {Color: color.RGBA{G: 200, A: 255}, Width: 4}} {
		r := NewRenderer(pen)
		live := NewImageSurface(snap.Bounds())
		ref := NewImageSurface(snap.Bounds())

		anchor := image.Pt(rng.Intn(w), rng.Intn(h))
		if err := r.OnRepaintAll(live, snap, anchor, anchor, false); err != nil {
			t.Fatal(err)
		}
		prev := anchor
		for i := 0; i < 200; i++ {
			// Occasionally leave the client area, as a captured pointer can.
			next := image.Pt(rng.Intn(w+20)-10, rng.Intn(h+20)-10)
			if err := r.OnMove(live, snap, anchor, prev, next); err != nil {
				t.Fatal(err)
			}
			if err := r.OnRepaintAll(ref, snap, anchor, next, true); err != nil {
				t.Fatal(err)
			}
			if !samePixels(live.Image(), ref.Image()) {
				t.Fatalf("pen %+v step %d: incremental repaint differs (anchor=%v prev=%v next=%v)", pen, i, anchor, prev, next)
			}
			prev = next
		}
	}
}

func TestOnMoveRestoresBeforeBorderAndFlushesOnce(t *testing.T) {
	snap := testSnapshot(200, 200)
	s := &recordingSurface{ImageSurface: NewImageSurface(snap.Bounds())}
	r := NewRenderer(DefaultPen())

	if err := r.OnMove(s, snap, image.Pt(20, 20), image.Pt(50, 60), image.Pt(80, 90)); err != nil {
		t.Fatal(err)
	}

	kinds := make([]string, len(s.ops))
	for i, o := range s.ops {
		kinds[i] = o.kind
	}
	want := []string{"blit", "blit", "border", "flush"}
	if len(kinds) != len(want) {
		t.Fatalf("ops = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("ops = %v, want %v", kinds, want)
		}
	}
	if s.ops[2].r != image.Rect(20, 20, 80, 90) {
		t.Errorf("border drawn at %v, want (20,20)-(80,90)", s.ops[2].r)
	}
}

func TestOnMoveLeavesInteriorAlone(t *testing.T) {
	snap := testSnapshot(1000, 800)
	s := &recordingSurface{ImageSurface: NewImageSurface(snap.Bounds())}
	r := NewRenderer(DefaultPen())

	if err := r.OnMove(s, snap, image.Pt(10, 10), image.Pt(900, 700), image.Pt(905, 702)); err != nil {
		t.Fatal(err)
	}
	area := 0
	for _, o := range s.ops {
		if o.kind == "blit" {
			area += o.r.Dx() * o.r.Dy()
		}
	}
	full := snap.Bounds().Dx() * snap.Bounds().Dy()
	if area*10 > full {
		t.Errorf("restored %d pixels of %d; expected a small fraction", area, full)
	}
	interior := image.Pt(400, 400)
	for _, o := range s.ops {
		if o.kind == "blit" && interior.In(o.r) {
			t.Errorf("interior point restored by blit %v", o.r)
		}
	}
}

func TestOnRepaintAllIsIdempotent(t *testing.T) {
	snap := testSnapshot(64, 64)
	r := NewRenderer(DefaultPen())
	s := NewImageSurface(snap.Bounds())

	if err := r.OnRepaintAll(s, snap, image.Pt(5, 5), image.Pt(40, 30), true); err != nil {
		t.Fatal(err)
	}
	first := image.NewRGBA(s.Image().Rect)
	copy(first.Pix, s.Image().Pix)

	if err := r.OnRepaintAll(s, snap, image.Pt(5, 5), image.Pt(40, 30), true); err != nil {
		t.Fatal(err)
	}
	if !samePixels(first, s.Image()) {
		t.Error("second full repaint changed pixels")
	}
}

func TestOnRepaintAllWithoutDragRestoresSnapshot(t *testing.T) {
	snap := testSnapshot(64, 48)
	r := NewRenderer(DefaultPen())
	s := NewImageSurface(snap.Bounds())

	// Leave a border behind, then clear it as a right click would.
	if err := r.OnRepaintAll(s, snap, image.Pt(5, 5), image.Pt(40, 30), true); err != nil {
		t.Fatal(err)
	}
	if err := r.OnRepaintAll(s, snap, image.Pt(5, 5), image.Pt(40, 30), false); err != nil {
		t.Fatal(err)
	}
	want, _ := snap.Crop(snap.Bounds())
	if !samePixels(want, s.Image()) {
		t.Error("repaint without drag should show the bare snapshot")
	}
}

func TestOnExposeRestoresOnlyRegion(t *testing.T) {
	snap := testSnapshot(50, 50)
	r := NewRenderer(DefaultPen())
	s := NewImageSurface(snap.Bounds())
	region := image.Rect(10, 10, 20, 20)

	if err := r.OnExpose(s, snap, region, image.Rectangle{}, false); err != nil {
		t.Fatal(err)
	}
	want, _ := snap.Crop(snap.Bounds())
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			inside := image.Pt(x, y).In(region)
			restored := s.Image().RGBAAt(x, y) == want.RGBAAt(x, y)
			if inside && !restored {
				t.Fatalf("pixel (%d,%d) inside exposed region not restored", x, y)
			}
			if !inside && s.Image().RGBAAt(x, y) != (color.RGBA{}) {
				t.Fatalf("pixel (%d,%d) outside exposed region was touched", x, y)
			}
		}
	}
}

func TestBorderAtClientEdgeIsClipped(t *testing.T) {
	snap := testSnapshot(40, 40)
	r := NewRenderer(Pen{Color: color.RGBA{R: 255, A: 255}, Width: 3})
	s := NewImageSurface(snap.Bounds())

	if err := r.OnMove(s, snap, image.Pt(0, 0), image.Pt(20, 20), image.Pt(39, 39)); err != nil {
		t.Fatal(err)
	}
	if got := s.Image().RGBAAt(0, 0); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("corner pixel = %v, want border colour", got)
	}
	if d := s.Dirty(); !d.In(snap.Bounds()) {
		t.Errorf("dirty area %v escapes surface", d)
	}
}

func TestPenStroke(t *testing.T) {
	if got := DefaultPen().Stroke(); got != geometry.StrokeWidth(2.5) {
		t.Errorf("DefaultPen().Stroke() = %d", got)
	}
}
