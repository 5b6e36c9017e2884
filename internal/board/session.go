package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
	"github.com/ryanbastic/pixelboard/internal/selection"
)

var (
	// ErrNotComposing is returned by Submit when no selection is committed.
	ErrNotComposing = errors.New("no committed selection")

	// ErrUnknownFormat is returned by ToggleFormat for an unknown toggle name.
	ErrUnknownFormat = errors.New("unknown format")
)

// Session is one viewer's interaction with a Board: its grid layout, drag
// gesture, format toggles, and the composition prompt that opens when a
// selection is committed.
type Session struct {
	board    *Board
	selector *selection.Selector
	listener selection.Listener

	mu        sync.Mutex
	layout    grid.Layout
	format    message.Format
	composing bool
	pending   []grid.CellID
}

// NewSession creates a session for a viewer with the given viewport.
// listener, if non-nil, receives the session's selection events.
func NewSession(b *Board, v grid.Viewport, listener selection.Listener) *Session {
	s := &Session{
		board:    b,
		listener: listener,
		layout:   grid.Compute(v),
	}
	s.selector = selection.New(s.layout, s.onSelection)
	return s
}

func (s *Session) onSelection(ev selection.Event) {
	if ev.Kind == selection.Committed {
		s.mu.Lock()
		s.composing = true
		s.pending = slices.Clone(ev.Cells)
		s.mu.Unlock()
	}
	if s.listener != nil {
		s.listener(ev)
	}
}

// Layout returns the session's current grid.
func (s *Session) Layout() grid.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Resize recomputes the grid. Records and a committed selection survive;
// cells that no longer resolve are skipped when painting and submitting.
func (s *Session) Resize(v grid.Viewport) grid.Layout {
	l := grid.Compute(v)
	s.mu.Lock()
	s.layout = l
	s.mu.Unlock()
	s.selector.Resize(l)
	return l
}

// HandlePointer feeds pointer input to the selector. Input is ignored while
// the composition prompt is open.
func (s *Session) HandlePointer(ev selection.PointerEvent) {
	if s.Composing() {
		return
	}
	s.selector.Handle(ev)
}

// PointerAt resolves a pixel position against the current layout and feeds
// it to the selector.
func (s *Session) PointerAt(action selection.Action, button selection.Button, x, y int) {
	c, ok := s.Layout().CellAt(x, y)
	s.HandlePointer(selection.PointerEvent{Action: action, Button: button, Cell: c, OnGrid: ok})
}

// Selection returns the highlighted cells.
func (s *Session) Selection() []grid.CellID {
	return s.selector.Selection()
}

// Composing reports whether the composition prompt is open.
func (s *Session) Composing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composing
}

// Format returns the active format toggles.
func (s *Session) Format() message.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// ToggleFormat flips one of "bold", "italic" or "underline".
func (s *Session) ToggleFormat(name string) (message.Format, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "bold":
		s.format.Bold = !s.format.Bold
	case "italic":
		s.format.Italic = !s.format.Italic
	case "underline":
		s.format.Underline = !s.format.Underline
	default:
		return s.format, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return s.format, nil
}

// Submit closes the prompt and posts the committed selection with content
// and the active format. Cells that no longer resolve in the current layout
// are dropped first. The prompt closes even when the submission is rejected.
func (s *Session) Submit(ctx context.Context, content string) (message.Record, error) {
	s.mu.Lock()
	if !s.composing {
		s.mu.Unlock()
		return message.Record{}, ErrNotComposing
	}
	cells := make([]grid.CellID, 0, len(s.pending))
	for _, id := range s.pending {
		if _, err := s.layout.Resolve(id); err == nil {
			cells = append(cells, id)
		}
	}
	format := s.format
	s.closePromptLocked()
	s.mu.Unlock()

	s.selector.Cancel()
	return s.board.Post(ctx, cells, content, format)
}

// Cancel closes the prompt, or abandons a drag, without creating a record.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.closePromptLocked()
	s.mu.Unlock()
	s.selector.Cancel()
}

func (s *Session) closePromptLocked() {
	s.composing = false
	s.pending = nil
	s.format = message.Format{}
}

// Paint returns the board's paint plan for this session's layout.
func (s *Session) Paint() []PaintedCell {
	return s.board.Paint(s.Layout())
}

// TooltipAt returns the tooltip of the record painted on top of cell.
func (s *Session) TooltipAt(c grid.Coordinate) (message.Record, string, bool) {
	if !s.Layout().Contains(c) {
		return message.Record{}, "", false
	}
	r, ok := s.board.OwnerOf(c.ID())
	if !ok {
		return message.Record{}, "", false
	}
	return r, Tooltip(r), true
}
