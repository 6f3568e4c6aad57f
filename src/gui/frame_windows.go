//go:build windows

package gui

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"screen-snip/src/events"
	"screen-snip/src/geometry"
)

// NativeSupported reports whether NewNativeFrame can open a window here.
const NativeSupported = true

const (
	overlayClassName         = "ScreenSnipOverlay"
	overlayKeyPollTimerID    = 1
	overlayKeyPollIntervalMs = 25
)

var (
	user32DLL                    = syscall.NewLazyDLL("user32.dll")
	procAllowSetForegroundWindow = user32DLL.NewProc("AllowSetForegroundWindow")
	procGetAsyncKeyState         = user32DLL.NewProc("GetAsyncKeyState")

	gdi32DLL      = syscall.NewLazyDLL("gdi32.dll")
	procCreatePen = gdi32DLL.NewProc("CreatePen")
	procRectangle = gdi32DLL.NewProc("Rectangle")
)

var (
	registerOnce sync.Once
	registerErr  error
	crossCursor  win.HCURSOR

	// nativeFrames maps live overlay windows to their frames. The window
	// procedure is created once; a callback per window would exhaust the
	// runtime's callback slots.
	nativeFramesMu sync.Mutex
	nativeFrames   = map[win.HWND]*nativeFrame{}
)

// nativeFrame is a borderless topmost popup covering the virtual screen.
// Drawing goes to a compatible back-buffer bitmap; Flush BitBlts the
// touched area to the window. All methods except Close run on the thread
// that opened the window.
type nativeFrame struct {
	bounds image.Rectangle
	hidden bool
	damage damage

	backDC  win.HDC
	backBmp win.HBITMAP
	oldBack win.HGDIOBJ

	// bgSrc is the image currently held in the bgDC DIB.
	bgSrc image.Image
	bgDC  win.HDC
	bgBmp win.HBITMAP
	oldBg win.HGDIOBJ

	// paintDC is the BeginPaint DC while WM_PAINT is handled.
	paintDC       win.HDC
	dispatch      dispatcher
	escapeWasDown bool
	locked        bool

	mu   sync.Mutex // guards hwnd against Close from other goroutines
	hwnd win.HWND
}

var _ Overlay = (*nativeFrame)(nil)

// NewNativeFrame allocates the back buffer for an overlay covering bounds
// (screen coordinates). No window exists until Open.
func NewNativeFrame(bounds image.Rectangle) (Overlay, error) {
	if bounds.Empty() {
		return nil, fmt.Errorf("empty overlay bounds %v", bounds)
	}
	screenDC := win.GetDC(0)
	defer win.ReleaseDC(0, screenDC)

	f := &nativeFrame{
		bounds: bounds,
		damage: damage{clip: image.Rectangle{Max: bounds.Size()}},
	}
	f.backDC = win.CreateCompatibleDC(screenDC)
	if f.backDC == 0 {
		return nil, errors.New("CreateCompatibleDC failed")
	}
	f.backBmp = win.CreateCompatibleBitmap(screenDC, int32(bounds.Dx()), int32(bounds.Dy()))
	if f.backBmp == 0 {
		win.DeleteDC(f.backDC)
		return nil, fmt.Errorf("CreateCompatibleBitmap %v failed", bounds.Size())
	}
	f.oldBack = win.SelectObject(f.backDC, win.HGDIOBJ(f.backBmp))
	return f, nil
}

func (f *nativeFrame) ClientBounds() image.Rectangle { return f.bounds }

// Hide takes the window off screen at once and ends Run after the current
// message.
func (f *nativeFrame) Hide() {
	f.hidden = true
	if f.hwnd != 0 {
		win.ShowWindow(f.hwnd, win.SW_HIDE)
	}
}

// BlitImage copies sr of src onto dr of the back buffer. src is converted
// to a DIB the first time it is seen; the session blits from one snapshot
// for its whole life.
func (f *nativeFrame) BlitImage(src image.Image, sr, dr image.Rectangle) {
	if err := f.loadBackground(src); err != nil {
		log.Printf("OVERLAY: %v", err)
		return
	}
	origin := src.Bounds().Min
	dr = image.Rectangle{Min: dr.Min, Max: dr.Min.Add(sr.Size())}
	win.BitBlt(f.backDC, int32(dr.Min.X), int32(dr.Min.Y), int32(dr.Dx()), int32(dr.Dy()),
		f.bgDC, int32(sr.Min.X-origin.X), int32(sr.Min.Y-origin.Y), win.SRCCOPY)
	f.damage.add(dr)
}

// DrawRectangleOutline strokes r with an inside-frame GDI pen drawn around
// the outline bounds, which yields the same pixels as the centred strips of
// the in-memory surface.
func (f *nativeFrame) DrawRectangleOutline(r image.Rectangle, c color.Color, width float64) {
	stroke := geometry.StrokeWidth(width)
	outer := geometry.OutlineBounds(r, stroke)

	pen, _, _ := procCreatePen.Call(psInsideFrame, uintptr(stroke), uintptr(colorRef(c)))
	if pen == 0 {
		log.Printf("OVERLAY: CreatePen failed")
		return
	}
	oldPen := win.SelectObject(f.backDC, win.HGDIOBJ(pen))
	oldBrush := win.SelectObject(f.backDC, win.GetStockObject(win.NULL_BRUSH))
	procRectangle.Call(uintptr(f.backDC),
		uintptr(int32(outer.Min.X)), uintptr(int32(outer.Min.Y)),
		uintptr(int32(outer.Max.X)), uintptr(int32(outer.Max.Y)))
	win.SelectObject(f.backDC, oldPen)
	win.SelectObject(f.backDC, oldBrush)
	win.DeleteObject(win.HGDIOBJ(pen))

	f.damage.add(outer)
}

// Flush presents the damaged part of the back buffer.
func (f *nativeFrame) Flush() error {
	d := f.damage.take()
	if f.hwnd == 0 || d.Empty() {
		return nil
	}
	dc := f.paintDC
	if dc == 0 {
		dc = win.GetDC(f.hwnd)
		defer win.ReleaseDC(f.hwnd, dc)
	}
	if !win.BitBlt(dc, int32(d.Min.X), int32(d.Min.Y), int32(d.Dx()), int32(d.Dy()),
		f.backDC, int32(d.Min.X), int32(d.Min.Y), win.SRCCOPY) {
		return fmt.Errorf("present %v: BitBlt failed", d)
	}
	return nil
}

// Open creates and shows the window. Call it after the snapshot was taken
// so the overlay does not capture itself. The calling goroutine stays on
// its OS thread until Release.
func (f *nativeFrame) Open(title string) error {
	if err := registerClass(); err != nil {
		return err
	}
	runtime.LockOSThread()
	f.locked = true

	b := f.bounds
	hwnd := win.CreateWindowEx(
		win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		syscall.StringToUTF16Ptr(overlayClassName),
		syscall.StringToUTF16Ptr(title),
		win.WS_POPUP,
		int32(b.Min.X), int32(b.Min.Y), int32(b.Dx()), int32(b.Dy()),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return errors.New("failed to create overlay window")
	}

	nativeFramesMu.Lock()
	nativeFrames[hwnd] = f
	nativeFramesMu.Unlock()
	f.mu.Lock()
	f.hwnd = hwnd
	f.mu.Unlock()

	win.ShowWindow(hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	win.SetForegroundWindow(hwnd)
	win.BringWindowToTop(hwnd)
	win.SetFocus(hwnd)
	if win.SetTimer(hwnd, overlayKeyPollTimerID, overlayKeyPollIntervalMs, 0) == 0 {
		log.Printf("OVERLAY: Failed to start keyboard poll timer")
	}
	log.Printf("OVERLAY: native window %v at %v", hwnd, b)
	return nil
}

// Run pumps window messages into h until the frame is hidden or h is done.
func (f *nativeFrame) Run(h Handler) error {
	if f.hwnd == 0 {
		return errors.New("frame has no window")
	}
	f.dispatch = dispatcher{h: h}
	defer func() { f.dispatch.h = nil }()

	// The first paint is the full expose that puts the snapshot on screen.
	win.InvalidateRect(f.hwnd, nil, false)
	win.UpdateWindow(f.hwnd)

	var msg win.MSG
	for !f.hidden && !f.dispatch.done() {
		switch win.GetMessage(&msg, 0, 0, 0) {
		case 0:
			log.Printf("OVERLAY: WM_QUIT while selecting")
			f.dispatch.deliver(events.Hidden{})
			return f.dispatch.err
		case -1:
			return errors.New("GetMessage failed")
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
	return f.dispatch.err
}

// Close asks Run to stop as if the window had been closed. Safe to call
// from any goroutine.
func (f *nativeFrame) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hwnd != 0 {
		win.PostMessage(f.hwnd, wmCloseRequest, 0, 0)
	}
}

// Release destroys the window and frees the GDI objects.
func (f *nativeFrame) Release() {
	f.mu.Lock()
	hwnd := f.hwnd
	f.hwnd = 0
	f.mu.Unlock()

	if hwnd != 0 {
		nativeFramesMu.Lock()
		delete(nativeFrames, hwnd)
		nativeFramesMu.Unlock()
		win.KillTimer(hwnd, overlayKeyPollTimerID)
		win.DestroyWindow(hwnd)
	}
	f.releaseBackground()
	if f.backDC != 0 {
		win.SelectObject(f.backDC, f.oldBack)
		win.DeleteObject(win.HGDIOBJ(f.backBmp))
		win.DeleteDC(f.backDC)
		f.backDC, f.backBmp = 0, 0
	}
	if f.locked {
		f.locked = false
		runtime.UnlockOSThread()
	}
}

func (f *nativeFrame) loadBackground(src image.Image) error {
	if src == f.bgSrc && f.bgDC != 0 {
		return nil
	}
	f.releaseBackground()

	size := src.Bounds().Size()
	header := win.BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:       int32(size.X),
		BiHeight:      -int32(size.Y), // top-down
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: win.BI_RGB,
	}
	var bits unsafe.Pointer
	bmp := win.CreateDIBSection(f.backDC, &header, win.DIB_RGB_COLORS, &bits, 0, 0)
	if bmp == 0 || bits == nil {
		return fmt.Errorf("CreateDIBSection %v failed", size)
	}
	stride := size.X * 4
	fillBGRA(unsafe.Slice((*byte)(bits), stride*size.Y), stride, src)

	f.bgDC = win.CreateCompatibleDC(f.backDC)
	if f.bgDC == 0 {
		win.DeleteObject(win.HGDIOBJ(bmp))
		return errors.New("CreateCompatibleDC failed")
	}
	f.bgBmp = bmp
	f.oldBg = win.SelectObject(f.bgDC, win.HGDIOBJ(bmp))
	f.bgSrc = src
	return nil
}

func (f *nativeFrame) releaseBackground() {
	if f.bgDC == 0 {
		return
	}
	win.SelectObject(f.bgDC, f.oldBg)
	win.DeleteObject(win.HGDIOBJ(f.bgBmp))
	win.DeleteDC(f.bgDC)
	f.bgDC, f.bgBmp, f.bgSrc = 0, 0, nil
}

// pollEscape catches Escape when the popup did not get keyboard focus.
func (f *nativeFrame) pollEscape() {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(win.VK_ESCAPE))
	s := uint16(state)
	down := s&0x8000 != 0
	if !f.escapeWasDown && (down || s&0x0001 != 0) {
		f.dispatch.deliver(events.KeyDown{Key: events.KeyEscape})
	}
	f.escapeWasDown = down
}

func registerClass() error {
	registerOnce.Do(func() {
		crossCursor = win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS))
		if crossCursor == 0 {
			log.Printf("OVERLAY: Failed to load cross cursor")
		}
		wc := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			LpfnWndProc:   syscall.NewCallback(overlayWndProc),
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       crossCursor,
			HbrBackground: 0, // painted from the back buffer
			LpszClassName: syscall.StringToUTF16Ptr(overlayClassName),
		}
		if win.RegisterClassEx(&wc) == 0 {
			registerErr = errors.New("failed to register overlay window class")
		}
	})
	return registerErr
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	nativeFramesMu.Lock()
	f := nativeFrames[hwnd]
	nativeFramesMu.Unlock()
	if f == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		f.paintDC = win.BeginPaint(hwnd, &ps)
		region := image.Rect(int(ps.RcPaint.Left), int(ps.RcPaint.Top), int(ps.RcPaint.Right), int(ps.RcPaint.Bottom))
		// Present the back buffer even when the session has nothing to redraw.
		f.damage.add(region)
		f.dispatch.deliver(events.Expose{Region: region})
		if err := f.Flush(); err != nil {
			log.Printf("OVERLAY: %v", err)
		}
		f.paintDC = 0
		win.EndPaint(hwnd, &ps)
		return 0
	case win.WM_ERASEBKGND:
		return 1
	case win.WM_SETCURSOR:
		win.SetCursor(crossCursor)
		return 1
	case win.WM_NCHITTEST:
		return uintptr(win.HTCLIENT)
	case win.WM_TIMER:
		if wParam == overlayKeyPollTimerID {
			f.pollEscape()
		}
		return 0
	case win.WM_CLOSE:
		f.dispatch.deliver(events.Hidden{})
		return 0
	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			f.escapeWasDown = true
		}
	}

	if ev, ok := translateMessage(msg, wParam, lParam); ok {
		f.dispatch.deliver(ev)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}
