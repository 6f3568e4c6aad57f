// Package selection tracks the two-click rectangle gesture. It knows nothing
// about windows or pixels: every call reports a Transition and the caller
// performs the matching repaint or publish.
package selection

import (
	"fmt"
	"image"

	"screen-snip/src/geometry"
)

// Phase is the coarse state of the gesture.
type Phase int

const (
	// Idle has no anchor. Moves are ignored.
	Idle Phase = iota
	// Dragging has a fixed anchor and a live cursor.
	Dragging
	// Committed is terminal for the session; Reset returns to Idle.
	Committed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Transition describes one accepted state change.
type Transition struct {
	From, To Phase
	Anchor   image.Point
	// Prev is the cursor before the change, Cursor the cursor after it.
	Prev, Cursor image.Point
	// Rect is the committed rectangle when To is Committed.
	Rect image.Rectangle
}

// State is the gesture state machine. The zero value is Idle.
type State struct {
	phase  Phase
	anchor image.Point
	cursor image.Point
	rect   image.Rectangle
}

// Phase returns the current phase.
func (s *State) Phase() Phase { return s.phase }

// Dragging reports whether an anchor is set and the border is live.
func (s *State) Dragging() bool { return s.phase == Dragging }

// Anchor returns the fixed corner. Only meaningful while dragging.
func (s *State) Anchor() image.Point { return s.anchor }

// Cursor returns the live corner. Only meaningful while dragging.
func (s *State) Cursor() image.Point { return s.cursor }

// Rect returns the committed rectangle. Only meaningful once committed.
func (s *State) Rect() image.Rectangle { return s.rect }

// Border returns the rectangle currently outlined on screen and whether
// one is shown at all.
func (s *State) Border() (image.Rectangle, bool) {
	if s.phase != Dragging {
		return image.Rectangle{}, false
	}
	return geometry.Normalize(s.anchor, s.cursor), true
}

// Advance handles a left click at p: it sets the anchor when idle and
// commits when dragging. It reports false once the session is committed.
func (s *State) Advance(p image.Point) (Transition, bool) {
	switch s.phase {
	case Idle:
		s.phase = Dragging
		s.anchor = p
		s.cursor = p
		return Transition{From: Idle, To: Dragging, Anchor: p, Prev: p, Cursor: p}, true
	case Dragging:
		tr := Transition{
			From:   Dragging,
			To:     Committed,
			Anchor: s.anchor,
			Prev:   s.cursor,
			Cursor: p,
			Rect:   geometry.Normalize(s.anchor, p),
		}
		s.phase = Committed
		s.cursor = p
		s.rect = tr.Rect
		return tr, true
	default:
		return Transition{}, false
	}
}

// Move updates the live cursor. It only has an effect while dragging.
func (s *State) Move(p image.Point) (Transition, bool) {
	if s.phase != Dragging {
		return Transition{}, false
	}
	tr := Transition{From: Dragging, To: Dragging, Anchor: s.anchor, Prev: s.cursor, Cursor: p}
	s.cursor = p
	return tr, true
}

// Cancel handles a right click: a drag in progress is discarded and the
// machine returns to Idle. Idle and Committed ignore it.
func (s *State) Cancel() (Transition, bool) {
	if s.phase != Dragging {
		return Transition{}, false
	}
	tr := Transition{From: Dragging, To: Idle, Anchor: s.anchor, Prev: s.cursor, Cursor: s.cursor}
	s.Reset()
	return tr, true
}

// Reset forgets everything and returns to Idle.
func (s *State) Reset() {
	*s = State{}
}
