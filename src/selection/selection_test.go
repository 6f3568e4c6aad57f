package selection

import (
	"image"
	"testing"
)

func TestZeroValueIsIdle(t *testing.T) {
	var s State
	if s.Phase() != Idle {
		t.Fatalf("zero State phase = %v, want idle", s.Phase())
	}
	if _, ok := s.Border(); ok {
		t.Error("idle state should not show a border")
	}
}

func TestIdleIgnoresEverythingButAdvance(t *testing.T) {
	var s State
	if _, ok := s.Move(image.Pt(10, 10)); ok {
		t.Error("Move from idle should be ignored")
	}
	if _, ok := s.Cancel(); ok {
		t.Error("Cancel from idle should be ignored")
	}
	if s.Phase() != Idle {
		t.Fatalf("phase = %v, want idle", s.Phase())
	}

	tr, ok := s.Advance(image.Pt(50, 60))
	if !ok || tr.From != Idle || tr.To != Dragging {
		t.Fatalf("Advance from idle = %+v, %v", tr, ok)
	}
	if s.Anchor() != image.Pt(50, 60) || s.Cursor() != image.Pt(50, 60) {
		t.Errorf("anchor/cursor = %v/%v, want both (50,60)", s.Anchor(), s.Cursor())
	}
}

func TestMoveTracksPreviousCursor(t *testing.T) {
	var s State
	s.Advance(image.Pt(100, 100))

	tr, ok := s.Move(image.Pt(100, 100))
	if !ok || tr.Prev != image.Pt(100, 100) || tr.Cursor != image.Pt(100, 100) {
		t.Fatalf("no-op move = %+v, %v", tr, ok)
	}
	tr, ok = s.Move(image.Pt(400, 300))
	if !ok {
		t.Fatal("move while dragging rejected")
	}
	if tr.Anchor != image.Pt(100, 100) || tr.Prev != image.Pt(100, 100) || tr.Cursor != image.Pt(400, 300) {
		t.Errorf("move transition = %+v", tr)
	}
	tr, _ = s.Move(image.Pt(250, 20))
	if tr.Prev != image.Pt(400, 300) {
		t.Errorf("second move prev = %v, want (400,300)", tr.Prev)
	}
	if b, ok := s.Border(); !ok || b != image.Rect(100, 20, 250, 100) {
		t.Errorf("Border = %v, %v", b, ok)
	}
}

func TestCommit(t *testing.T) {
	var s State
	s.Advance(image.Pt(400, 300))
	s.Move(image.Pt(120, 80))

	tr, ok := s.Advance(image.Pt(100, 100))
	if !ok || tr.To != Committed {
		t.Fatalf("commit = %+v, %v", tr, ok)
	}
	want := image.Rect(100, 100, 400, 300)
	if tr.Rect != want || s.Rect() != want {
		t.Errorf("committed rect = %v / %v, want %v", tr.Rect, s.Rect(), want)
	}
	if _, ok := s.Advance(image.Pt(1, 1)); ok {
		t.Error("Advance after commit should be ignored")
	}
	if _, ok := s.Move(image.Pt(1, 1)); ok {
		t.Error("Move after commit should be ignored")
	}
	if _, ok := s.Cancel(); ok {
		t.Error("Cancel after commit should be ignored")
	}

	s.Reset()
	if s.Phase() != Idle {
		t.Errorf("phase after Reset = %v", s.Phase())
	}
}

func TestCancelReturnsToIdleRegardlessOfHistory(t *testing.T) {
	paths := [][]image.Point{
		nil,
		{{0, 0}},
		{{5, 5}, {900, 2}, {-40, 300}},
	}
	for _, path := range paths {
		var s State
		s.Advance(image.Pt(50, 50))
		for _, p := range path {
			s.Move(p)
		}
		tr, ok := s.Cancel()
		if !ok || tr.To != Idle {
			t.Fatalf("Cancel after %v = %+v, %v", path, tr, ok)
		}
		if s.Phase() != Idle {
			t.Fatalf("phase after cancel = %v", s.Phase())
		}

		tr, _ = s.Advance(image.Pt(60, 60))
		if tr.Anchor != image.Pt(60, 60) || s.Anchor() != image.Pt(60, 60) {
			t.Errorf("fresh anchor = %v, want (60,60)", s.Anchor())
		}
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{Idle: "idle", Dragging: "dragging", Committed: "committed", Phase(9): "phase(9)"} {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(p), got, want)
		}
	}
}
