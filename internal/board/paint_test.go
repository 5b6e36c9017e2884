package board

import (
	"testing"

	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
)

func TestPaint_LaterRecordsPaintOver(t *testing.T) {
	snap := message.Snapshot{
		{ID: "message-1", Cells: ids("0-0", "0-1", "0-2"), Color: "#000000"},
		{ID: "message-2", Cells: ids("0-1", "1-0"), Color: "#FF6B6B"},
	}
	l := grid.Layout{CellSize: 20, Rows: 5, Cols: 5}

	got := Paint(snap, l)
	want := []struct {
		cell, id, color, end string
	}{
		{"0-0", "message-1", "#000000", "#333333"},
		{"0-1", "message-2", "#FF6B6B", "#ff9e9e"},
		{"0-2", "message-1", "#000000", "#333333"},
		{"1-0", "message-2", "#FF6B6B", "#ff9e9e"},
	}
	if len(got) != len(want) {
		t.Fatalf("painted: got %d cells, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		g := got[i]
		if string(g.Cell) != w.cell || g.MessageID != w.id || g.Color != w.color || g.GradientEnd != w.end {
			t.Errorf("cell %d: got %+v, want %+v", i, g, w)
		}
	}
}

func TestPaint_SkipsStaleAndMalformedCells(t *testing.T) {
	snap := message.Snapshot{
		{ID: "message-1", Cells: ids("0-0", "9-9", "junk"), Color: "#4ECDC4"},
	}
	got := Paint(snap, grid.Layout{CellSize: 20, Rows: 2, Cols: 2})
	if len(got) != 1 || got[0].Cell != "0-0" || got[0].Row != 0 || got[0].Col != 0 {
		t.Errorf("painted: got %+v", got)
	}
}

func TestPaint_InvalidColorKeepsColor(t *testing.T) {
	snap := message.Snapshot{{ID: "message-1", Cells: ids("0-0"), Color: "red"}}
	got := Paint(snap, grid.Layout{CellSize: 20, Rows: 1, Cols: 1})
	if len(got) != 1 || got[0].GradientEnd != "red" {
		t.Errorf("painted: got %+v", got)
	}
}

func TestPaint_Empty(t *testing.T) {
	if got := Paint(nil, grid.Layout{CellSize: 20, Rows: 3, Cols: 3}); len(got) != 0 {
		t.Errorf("got %+v, want nothing", got)
	}
}

func TestTooltip(t *testing.T) {
	tests := []struct {
		format message.Format
		want   string
	}{
		{message.Format{}, "hi &amp; bye"},
		{message.Format{Bold: true}, "<strong>hi &amp; bye</strong>"},
		{message.Format{Italic: true}, "<em>hi &amp; bye</em>"},
		{message.Format{Underline: true}, "<u>hi &amp; bye</u>"},
		{message.Format{Bold: true, Italic: true, Underline: true}, "<u><em><strong>hi &amp; bye</strong></em></u>"},
		{message.Format{Bold: true, Underline: true}, "<u><strong>hi &amp; bye</strong></u>"},
	}
	for _, tt := range tests {
		got := Tooltip(message.Record{Content: "hi & bye", Format: tt.format})
		if got != tt.want {
			t.Errorf("Tooltip(%+v) = %q, want %q", tt.format, got, tt.want)
		}
	}
}
