package gui

import (
	"errors"
	"image"
	"image/color"

	"screen-snip/src/events"
)

// ErrNativeUnsupported is returned where no native overlay window exists.
var ErrNativeUnsupported = errors.New("native overlay window is only available on Windows")

// Win32 message and style values the native overlay reacts to. They are
// kept here, outside the windows build, so the translation is testable
// everywhere.
const (
	wmKeyDown     = 0x0100
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmRButtonDown = 0x0204
	wmMButtonDown = 0x0207
	wmApp         = 0x8000
	// wmCloseRequest is posted by Close from other goroutines.
	wmCloseRequest = wmApp + 1

	vkEscape      = 0x1B
	psInsideFrame = 6
)

// translateMessage maps a window message to a session event.
func translateMessage(msg uint32, wParam, lParam uintptr) (events.Event, bool) {
	switch msg {
	case wmLButtonDown:
		return events.MouseDown{Button: events.ButtonLeft, Point: lparamPoint(lParam)}, true
	case wmRButtonDown:
		return events.MouseDown{Button: events.ButtonRight, Point: lparamPoint(lParam)}, true
	case wmMButtonDown:
		return events.MouseDown{Button: events.ButtonMiddle, Point: lparamPoint(lParam)}, true
	case wmMouseMove:
		return events.MouseMove{Point: lparamPoint(lParam)}, true
	case wmKeyDown:
		if wParam == vkEscape {
			return events.KeyDown{Key: events.KeyEscape}, true
		}
		return events.KeyDown{Key: events.KeyOther}, true
	case wmCloseRequest:
		return events.Hidden{}, true
	}
	return nil, false
}

// lparamPoint unpacks signed client coordinates from a mouse message.
func lparamPoint(lParam uintptr) image.Point {
	return image.Pt(int(int16(uint16(lParam))), int(int16(uint16(lParam>>16))))
}

// colorRef packs c as a GDI COLORREF (0x00BBGGRR).
func colorRef(c color.Color) uint32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return uint32(n.R) | uint32(n.G)<<8 | uint32(n.B)<<16
}

// fillBGRA writes src into a top-down 32-bit DIB whose rows are stride
// bytes apart.
func fillBGRA(dst []byte, stride int, src image.Image) {
	b := src.Bounds()
	w := b.Dx() * 4
	if rgba, ok := src.(*image.RGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			s := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):][:w]
			d := dst[y*stride:][:w]
			for i := 0; i < w; i += 4 {
				d[i], d[i+1], d[i+2], d[i+3] = s[i+2], s[i+1], s[i], s[i+3]
			}
		}
		return
	}
	for y := 0; y < b.Dy(); y++ {
		d := dst[y*stride:][:w]
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			d[x*4], d[x*4+1], d[x*4+2], d[x*4+3] = byte(bl>>8), byte(g>>8), byte(r>>8), byte(a>>8)
		}
	}
}

// damage accumulates the back-buffer area that still has to be presented.
type damage struct {
	clip image.Rectangle
	r    image.Rectangle
}

func (d *damage) add(r image.Rectangle) {
	if r = r.Intersect(d.clip); !r.Empty() {
		d.r = d.r.Union(r)
	}
}

func (d *damage) take() image.Rectangle {
	r := d.r
	d.r = image.Rectangle{}
	return r
}
