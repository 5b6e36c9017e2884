package board

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/ryanbastic/pixelboard/internal/gateway"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
	"github.com/ryanbastic/pixelboard/internal/selection"
)

var desktop = grid.Viewport{Width: 800, Height: 100} // 40 cols x 5 rows at 20px

type eventLog struct {
	mu     sync.Mutex
	events []selection.Event
}

func (l *eventLog) listen(ev selection.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []selection.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]selection.EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func drag(s *Session, from, to grid.Coordinate) {
	s.HandlePointer(selection.PointerEvent{Action: selection.Down, Cell: from, OnGrid: true})
	s.HandlePointer(selection.PointerEvent{Action: selection.Move, Cell: to, OnGrid: true})
	s.HandlePointer(selection.PointerEvent{Action: selection.Up})
}

func TestSession_DragCommitSubmit(t *testing.T) {
	b := newBoard(t, gateway.NewMemory())
	log := &eventLog{}
	s := NewSession(b, desktop, log.listen)

	drag(s, grid.Coordinate{Row: 1, Col: 2}, grid.Coordinate{Row: 0, Col: 1})

	if !s.Composing() {
		t.Fatal("prompt should open after a commit")
	}
	want := ids("0-1", "0-2", "1-1", "1-2")
	if got := s.Selection(); !slices.Equal(got, want) {
		t.Errorf("selection: got %v, want %v", got, want)
	}

	s.ToggleFormat("bold")
	s.ToggleFormat("underline")

	rec, err := s.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !slices.Equal(rec.Cells, want) {
		t.Errorf("cells: got %v, want %v", rec.Cells, want)
	}
	if rec.Format != (message.Format{Bold: true, Underline: true}) {
		t.Errorf("format: got %+v", rec.Format)
	}

	if s.Composing() {
		t.Error("prompt should close after submit")
	}
	if s.Format() != (message.Format{}) {
		t.Errorf("format should reset after submit, got %+v", s.Format())
	}
	if len(s.Selection()) != 0 {
		t.Error("selection should clear after submit")
	}

	kinds := log.kinds()
	if kinds[len(kinds)-1] != selection.Cleared {
		t.Errorf("last event: got %v, want Cleared", kinds[len(kinds)-1])
	}
}

func TestSession_FormatIsCopiedAtSubmit(t *testing.T) {
	b := newBoard(t, gateway.NewMemory())
	s := NewSession(b, desktop, nil)

	drag(s, grid.Coordinate{}, grid.Coordinate{})
	s.ToggleFormat("italic")
	rec, _ := s.Submit(context.Background(), "styled")

	drag(s, grid.Coordinate{Row: 2}, grid.Coordinate{Row: 2})
	s.ToggleFormat("bold")

	stored, _ := b.Record(rec.ID)
	if stored.Format != (message.Format{Italic: true}) {
		t.Errorf("stored format changed: got %+v", stored.Format)
	}
}

func TestSession_EmptySubmitClosesPromptSilently(t *testing.T) {
	b := newBoard(t, gateway.NewMemory())
	s := NewSession(b, desktop, nil)

	drag(s, grid.Coordinate{}, grid.Coordinate{Row: 1, Col: 1})
	s.ToggleFormat("bold")

	_, err := s.Submit(context.Background(), "   ")
	if !errors.Is(err, message.ErrInvalidSubmission) {
		t.Errorf("error: got %v, want invalid submission", err)
	}
	if s.Composing() || len(s.Selection()) != 0 || s.Format() != (message.Format{}) {
		t.Error("prompt should be closed and reset")
	}
	if b.Len() != 0 {
		t.Errorf("board: got %d records, want 0", b.Len())
	}
}

func TestSession_SubmitWithoutCommit(t *testing.T) {
	s := NewSession(newBoard(t, gateway.NewMemory()), desktop, nil)
	if _, err := s.Submit(context.Background(), "text"); !errors.Is(err, ErrNotComposing) {
		t.Errorf("got %v, want ErrNotComposing", err)
	}
}

func TestSession_Cancel(t *testing.T) {
	b := newBoard(t, gateway.NewMemory())
	s := NewSession(b, desktop, nil)

	drag(s, grid.Coordinate{}, grid.Coordinate{Row: 1})
	s.ToggleFormat("italic")
	s.Cancel()

	if s.Composing() || len(s.Selection()) != 0 || s.Format() != (message.Format{}) {
		t.Error("cancel should close and reset the prompt")
	}
	if b.Len() != 0 {
		t.Error("cancel must not create a record")
	}
}

func TestSession_PointerIgnoredWhileComposing(t *testing.T) {
	s := NewSession(newBoard(t, gateway.NewMemory()), desktop, nil)

	drag(s, grid.Coordinate{}, grid.Coordinate{})
	drag(s, grid.Coordinate{Row: 3, Col: 3}, grid.Coordinate{Row: 4, Col: 4})

	if got := s.Selection(); !slices.Equal(got, ids("0-0")) {
		t.Errorf("selection: got %v, want [0-0]", got)
	}
}

func TestSession_ToggleFormat(t *testing.T) {
	s := NewSession(newBoard(t, gateway.NewMemory()), desktop, nil)

	f, _ := s.ToggleFormat("bold")
	if !f.Bold {
		t.Error("bold should be on")
	}
	f, _ = s.ToggleFormat("bold")
	if f.Bold {
		t.Error("bold should toggle off")
	}
	if _, err := s.ToggleFormat("strike"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("got %v, want ErrUnknownFormat", err)
	}
}

func TestSession_PointerAt(t *testing.T) {
	s := NewSession(newBoard(t, gateway.NewMemory()), desktop, nil)

	s.PointerAt(selection.Down, selection.Primary, 45, 5)
	s.PointerAt(selection.Move, selection.Primary, 65, 25)
	s.PointerAt(selection.Move, selection.Primary, 5000, 5000)
	s.PointerAt(selection.Up, selection.Primary, 0, 0)

	want := ids("0-2", "0-3", "1-2", "1-3")
	if got := s.Selection(); !slices.Equal(got, want) {
		t.Errorf("selection: got %v, want %v", got, want)
	}
}

func TestSession_ResizeKeepsRecords(t *testing.T) {
	b := newBoard(t, gateway.NewMemory())
	s := NewSession(b, desktop, nil)

	drag(s, grid.Coordinate{Row: 4, Col: 9}, grid.Coordinate{Row: 4, Col: 9})
	s.Submit(context.Background(), "corner")

	l := s.Resize(grid.Viewport{Width: 100, Height: 50})
	if l.CellSize != 25 || l.Rows != 2 || l.Cols != 4 {
		t.Errorf("layout: got %+v", l)
	}
	if b.Len() != 1 {
		t.Errorf("records: got %d, want 1", b.Len())
	}
	if len(s.Paint()) != 0 {
		t.Error("stale cell should not paint")
	}

	s.Resize(desktop)
	if len(s.Paint()) != 1 {
		t.Error("cell should paint again once back in range")
	}
}

func TestSession_SubmitDropsCellsStaleAfterResize(t *testing.T) {
	b := newBoard(t, gateway.NewMemory())
	s := NewSession(b, desktop, nil)

	drag(s, grid.Coordinate{Row: 0, Col: 3}, grid.Coordinate{Row: 0, Col: 6})
	s.Resize(grid.Viewport{Width: 125, Height: 100})

	rec, err := s.Submit(context.Background(), "clipped")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if want := ids("0-3", "0-4"); !slices.Equal(rec.Cells, want) {
		t.Errorf("cells: got %v, want %v", rec.Cells, want)
	}
}

func TestSession_TooltipAt(t *testing.T) {
	b := newBoard(t, gateway.NewMemory())
	s := NewSession(b, desktop, nil)

	drag(s, grid.Coordinate{Row: 1, Col: 1}, grid.Coordinate{Row: 1, Col: 1})
	s.ToggleFormat("bold")
	s.Submit(context.Background(), "a<b")

	rec, html, ok := s.TooltipAt(grid.Coordinate{Row: 1, Col: 1})
	if !ok {
		t.Fatal("expected a tooltip")
	}
	if rec.Content != "a<b" {
		t.Errorf("record: got %+v", rec)
	}
	if html != "<strong>a&lt;b</strong>" {
		t.Errorf("html: got %q", html)
	}

	if _, _, ok := s.TooltipAt(grid.Coordinate{Row: 0, Col: 0}); ok {
		t.Error("empty cell should have no tooltip")
	}
	if _, _, ok := s.TooltipAt(grid.Coordinate{Row: 40, Col: 40}); ok {
		t.Error("off-grid cell should have no tooltip")
	}
}
