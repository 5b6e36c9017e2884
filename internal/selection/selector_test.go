package selection

import (
	"slices"
	"testing"

	"github.com/ryanbastic/pixelboard/internal/grid"
)

var testBounds = grid.Layout{CellSize: 20, Rows: 20, Cols: 30}

func at(row, col int) grid.Coordinate {
	return grid.Coordinate{Row: row, Col: col}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func TestRectangle_ContainsEndpointsAndSize(t *testing.T) {
	points := []grid.Coordinate{at(0, 0), at(3, 7), at(7, 3), at(5, 5), at(0, 9), at(9, 0)}

	for _, a := range points {
		for _, b := range points {
			cells := Rectangle(a, b)
			want := (absInt(a.Row-b.Row) + 1) * (absInt(a.Col-b.Col) + 1)
			if len(cells) != want {
				t.Errorf("Rectangle(%v,%v): got %d cells, want %d", a, b, len(cells), want)
			}
			if !slices.Contains(cells, a.ID()) || !slices.Contains(cells, b.ID()) {
				t.Errorf("Rectangle(%v,%v): endpoints missing", a, b)
			}
		}
	}
}

func TestRectangle_Idempotent(t *testing.T) {
	first := Rectangle(at(4, 2), at(1, 6))
	for i := 0; i < 3; i++ {
		if got := Rectangle(at(4, 2), at(1, 6)); !slices.Equal(got, first) {
			t.Fatalf("call %d: got %v, want %v", i, got, first)
		}
	}
}

func TestRectangle_RowMajorOrder(t *testing.T) {
	got := Rectangle(at(1, 1), at(0, 0))
	want := []grid.CellID{"0-0", "0-1", "1-0", "1-1"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

type recorder struct {
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) last() Event {
	return r.events[len(r.events)-1]
}

func TestSelector_DragCommit(t *testing.T) {
	rec := &recorder{}
	s := New(testBounds, rec.listen)

	s.Handle(PointerEvent{Action: Down, Cell: at(2, 2), OnGrid: true})
	if s.State() != Dragging {
		t.Fatalf("state: got %v, want dragging", s.State())
	}
	if got := s.Selection(); !slices.Equal(got, []grid.CellID{"2-2"}) {
		t.Errorf("anchor selection: got %v", got)
	}

	s.Handle(PointerEvent{Action: Move, Cell: at(3, 4), OnGrid: true})
	if got := len(s.Selection()); got != 6 {
		t.Errorf("selection size: got %d, want 6", got)
	}

	// Shrinking back must replace, not accumulate.
	s.Handle(PointerEvent{Action: Move, Cell: at(2, 3), OnGrid: true})
	if got := s.Selection(); !slices.Equal(got, []grid.CellID{"2-2", "2-3"}) {
		t.Errorf("shrunk selection: got %v", got)
	}

	s.Handle(PointerEvent{Action: Up})
	if s.State() != Idle {
		t.Errorf("state after release: got %v, want idle", s.State())
	}
	ev := rec.last()
	if ev.Kind != Committed {
		t.Fatalf("last event: got %v, want Committed", ev.Kind)
	}
	if !slices.Equal(ev.Cells, []grid.CellID{"2-2", "2-3"}) {
		t.Errorf("committed cells: got %v", ev.Cells)
	}
	if got := s.Selection(); len(got) != 2 {
		t.Errorf("selection should survive commit until cancel, got %v", got)
	}
}

func TestSelector_IgnoresNonPrimaryPress(t *testing.T) {
	rec := &recorder{}
	s := New(testBounds, rec.listen)

	s.Handle(PointerEvent{Action: Down, Button: Secondary, Cell: at(1, 1), OnGrid: true})
	if s.State() != Idle {
		t.Errorf("state: got %v, want idle", s.State())
	}
	if len(rec.events) != 0 {
		t.Errorf("events: got %d, want 0", len(rec.events))
	}
}

func TestSelector_MoveWhileIdleIgnored(t *testing.T) {
	s := New(testBounds, nil)
	s.Handle(PointerEvent{Action: Move, Cell: at(1, 1), OnGrid: true})
	if len(s.Selection()) != 0 {
		t.Errorf("selection: got %v, want empty", s.Selection())
	}
}

func TestSelector_MoveOffGridKeepsSelection(t *testing.T) {
	s := New(testBounds, nil)
	s.Handle(PointerEvent{Action: Down, Cell: at(0, 0), OnGrid: true})
	s.Handle(PointerEvent{Action: Move, Cell: at(1, 1), OnGrid: true})
	s.Handle(PointerEvent{Action: Move, OnGrid: false})
	s.Handle(PointerEvent{Action: Move, Cell: at(100, 100), OnGrid: true})

	if got := len(s.Selection()); got != 4 {
		t.Errorf("selection size: got %d, want 4", got)
	}
}

func TestSelector_ReleaseWithoutPress(t *testing.T) {
	rec := &recorder{}
	s := New(testBounds, rec.listen)
	s.Handle(PointerEvent{Action: Up})
	if len(rec.events) != 0 {
		t.Errorf("events: got %d, want 0", len(rec.events))
	}
}

func TestSelector_PressClearsPriorSelection(t *testing.T) {
	s := New(testBounds, nil)
	s.Handle(PointerEvent{Action: Down, Cell: at(0, 0), OnGrid: true})
	s.Handle(PointerEvent{Action: Move, Cell: at(5, 5), OnGrid: true})
	s.Handle(PointerEvent{Action: Up})

	s.Handle(PointerEvent{Action: Down, Cell: at(9, 9), OnGrid: true})
	if got := s.Selection(); !slices.Equal(got, []grid.CellID{"9-9"}) {
		t.Errorf("selection: got %v, want [9-9]", got)
	}
}

func TestSelector_Cancel(t *testing.T) {
	rec := &recorder{}
	s := New(testBounds, rec.listen)
	s.Handle(PointerEvent{Action: Down, Cell: at(0, 0), OnGrid: true})
	s.Handle(PointerEvent{Action: Move, Cell: at(1, 1), OnGrid: true})

	s.Cancel()

	if s.State() != Idle {
		t.Errorf("state: got %v, want idle", s.State())
	}
	if len(s.Selection()) != 0 {
		t.Errorf("selection: got %v, want empty", s.Selection())
	}
	if rec.last().Kind != Cleared {
		t.Errorf("last event: got %v, want Cleared", rec.last().Kind)
	}

	// Release after cancel must not commit.
	n := len(rec.events)
	s.Handle(PointerEvent{Action: Up})
	if len(rec.events) != n {
		t.Error("release after cancel emitted an event")
	}
}

func TestSelector_ResizeClipsStaleAnchor(t *testing.T) {
	s := New(testBounds, nil)
	s.Handle(PointerEvent{Action: Down, Cell: at(15, 15), OnGrid: true})

	s.Resize(grid.Layout{CellSize: 35, Rows: 10, Cols: 10})
	s.Handle(PointerEvent{Action: Move, Cell: at(8, 8), OnGrid: true})

	for _, id := range s.Selection() {
		c, _ := id.Coordinate()
		if c.Row >= 10 || c.Col >= 10 {
			t.Errorf("selection contains out-of-bounds cell %s", id)
		}
	}
	if got := len(s.Selection()); got != 4 {
		t.Errorf("selection size: got %d, want 4", got)
	}
}
