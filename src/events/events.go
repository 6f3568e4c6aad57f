package events

import "image"

// Event is the base interface for everything the window delivers to a
// selection session.
type Event interface {
	Type() string
}

// Event type constants for type identification
const (
	TypeShown     = "Shown"
	TypeHidden    = "Hidden"
	TypeMouseDown = "MouseDown"
	TypeMouseMove = "MouseMove"
	TypeKeyDown   = "KeyDown"
	TypeExpose    = "Expose"
)

// Button identifies a mouse button.
type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "none"
	}
}

// Key identifies the few keys a session reacts to. Everything else is
// KeyOther.
type Key int

const (
	KeyOther Key = iota
	KeyEscape
)

func (k Key) String() string {
	if k == KeyEscape {
		return "escape"
	}
	return "other"
}

// Shown - the overlay became visible; the session captures its snapshot
type Shown struct{}

func (Shown) Type() string { return TypeShown }

// Hidden - the overlay went away without a commit (closed by the system)
type Hidden struct{}

func (Hidden) Type() string { return TypeHidden }

// MouseDown - a button was pressed at Point (overlay-local)
type MouseDown struct {
	Button Button
	Point  image.Point
}

func (MouseDown) Type() string { return TypeMouseDown }

// MouseMove - the pointer moved to Point (overlay-local)
type MouseMove struct {
	Point image.Point
}

func (MouseMove) Type() string { return TypeMouseMove }

// KeyDown - a key was pressed
type KeyDown struct {
	Key Key
}

func (KeyDown) Type() string { return TypeKeyDown }

// Expose - the window system asks for Region to be repainted. An empty
// region means the whole client area.
type Expose struct {
	Region image.Rectangle
}

func (Expose) Type() string { return TypeExpose }
