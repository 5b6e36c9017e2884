package selection

import (
	"slices"
	"sync"

	"github.com/ryanbastic/pixelboard/internal/grid"
)

// State is the selector's gesture state.
type State int

const (
	Idle     State = iota // No gesture in progress.
	Dragging              // Primary button held since a press on a cell.
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Action is the kind of pointer input.
type Action int

const (
	Down Action = iota // mouse press or touch start
	Move               // mouse move or touch move
	Up                 // mouse release or touch end
)

// Button identifies the pointer button. Touch input always reports Primary.
type Button int

const (
	Primary Button = iota
	Auxiliary
	Secondary
)

// PointerEvent is device-independent pointer input. OnGrid is false when the
// pointer is not over a grid cell, in which case Cell is ignored.
type PointerEvent struct {
	Action Action
	Button Button
	Cell   grid.Coordinate
	OnGrid bool
}

// EventKind distinguishes selector notifications.
type EventKind int

const (
	Changed   EventKind = iota // selection recomputed during a drag
	Committed                  // drag released with a non-empty selection
	Cleared                    // selection discarded
)

// Event is emitted to the selector's listener.
type Event struct {
	Kind  EventKind
	Cells []grid.CellID
}

// Listener receives selector notifications synchronously.
type Listener func(Event)

// Rectangle returns every cell in the inclusive axis-aligned rectangle
// spanned by a and b, row-major from the top-left corner.
func Rectangle(a, b grid.Coordinate) []grid.CellID {
	minRow, maxRow := min(a.Row, b.Row), max(a.Row, b.Row)
	minCol, maxCol := min(a.Col, b.Col), max(a.Col, b.Col)

	cells := make([]grid.CellID, 0, (maxRow-minRow+1)*(maxCol-minCol+1))
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			cells = append(cells, grid.Coordinate{Row: row, Col: col}.ID())
		}
	}
	return cells
}

// Selector tracks a single drag gesture over a grid layout.
type Selector struct {
	mu       sync.Mutex
	bounds   grid.Layout
	state    State
	anchor   grid.Coordinate
	cells    []grid.CellID
	listener Listener
}

// New creates an idle Selector over the given layout.
func New(bounds grid.Layout, listener Listener) *Selector {
	return &Selector{bounds: bounds, listener: listener}
}

// Handle feeds one pointer event into the state machine.
func (s *Selector) Handle(ev PointerEvent) {
	var out *Event

	s.mu.Lock()
	switch ev.Action {
	case Down:
		out = s.press(ev)
	case Move:
		out = s.move(ev)
	case Up:
		out = s.release()
	}
	s.mu.Unlock()

	if out != nil && s.listener != nil {
		s.listener(*out)
	}
}

func (s *Selector) press(ev PointerEvent) *Event {
	if ev.Button != Primary || !ev.OnGrid || !s.bounds.Contains(ev.Cell) {
		return nil
	}
	s.state = Dragging
	s.anchor = ev.Cell
	s.cells = []grid.CellID{ev.Cell.ID()}
	return &Event{Kind: Changed, Cells: slices.Clone(s.cells)}
}

func (s *Selector) move(ev PointerEvent) *Event {
	if s.state != Dragging || !ev.OnGrid || !s.bounds.Contains(ev.Cell) {
		return nil
	}
	s.cells = s.clip(Rectangle(s.anchor, ev.Cell))
	return &Event{Kind: Changed, Cells: slices.Clone(s.cells)}
}

func (s *Selector) release() *Event {
	if s.state != Dragging {
		return nil
	}
	s.state = Idle
	if len(s.cells) == 0 {
		return nil
	}
	return &Event{Kind: Committed, Cells: slices.Clone(s.cells)}
}

// clip drops cells that are outside the current bounds. The anchor may have
// gone stale after a resize mid-drag.
func (s *Selector) clip(cells []grid.CellID) []grid.CellID {
	out := cells[:0]
	for _, id := range cells {
		if _, err := s.bounds.Resolve(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// Cancel clears the selection and returns to Idle.
func (s *Selector) Cancel() {
	s.mu.Lock()
	s.state = Idle
	s.cells = nil
	s.mu.Unlock()

	if s.listener != nil {
		s.listener(Event{Kind: Cleared})
	}
}

// Resize updates the bounds used to resolve pointer positions. A drag in
// progress keeps its anchor.
func (s *Selector) Resize(bounds grid.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = bounds
}

// State returns the current gesture state.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selection returns a copy of the current selection.
func (s *Selector) Selection() []grid.CellID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cells)
}
