package gui

import (
	"image"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"

	"screen-snip/src/events"
)

// closeRequest is sent to a window from another goroutine to end the
// session as if the window had been closed.
type closeRequest struct{}

// Translate maps a shiny window event to a session event. It reports false
// for events a session does not care about.
func Translate(e interface{}) (events.Event, bool) {
	switch e := e.(type) {
	case mouse.Event:
		p := image.Pt(int(e.X), int(e.Y))
		switch e.Direction {
		case mouse.DirPress:
			return events.MouseDown{Button: translateButton(e.Button), Point: p}, true
		case mouse.DirNone:
			return events.MouseMove{Point: p}, true
		}
		return nil, false
	case key.Event:
		if e.Direction != key.DirPress {
			return nil, false
		}
		if e.Code == key.CodeEscape {
			return events.KeyDown{Key: events.KeyEscape}, true
		}
		return events.KeyDown{Key: events.KeyOther}, true
	case paint.Event:
		return events.Expose{}, true
	case lifecycle.Event:
		if e.To == lifecycle.StageDead {
			return events.Hidden{}, true
		}
		return nil, false
	case closeRequest:
		return events.Hidden{}, true
	}
	return nil, false
}

func translateButton(b mouse.Button) events.Button {
	switch b {
	case mouse.ButtonLeft:
		return events.ButtonLeft
	case mouse.ButtonRight:
		return events.ButtonRight
	case mouse.ButtonMiddle:
		return events.ButtonMiddle
	}
	return events.ButtonNone
}
