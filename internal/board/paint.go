package board

import (
	"cmp"
	"html"
	"slices"

	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
	"github.com/ryanbastic/pixelboard/internal/palette"
)

// GradientPercent is how much lighter the far end of a cell gradient is.
const GradientPercent = 20

// PaintedCell is one claimed cell as a viewer should draw it.
type PaintedCell struct {
	Cell        grid.CellID `json:"cell"`
	Row         int         `json:"row"`
	Col         int         `json:"col"`
	MessageID   string      `json:"message_id"`
	Color       string      `json:"color"`
	GradientEnd string      `json:"gradient_end"`
}

// Paint lays snap onto l. Later records paint over earlier ones. Cells that
// do not resolve in l are skipped. The result is row-major.
func Paint(snap message.Snapshot, l grid.Layout) []PaintedCell {
	byCell := make(map[grid.CellID]PaintedCell)
	for _, r := range snap {
		end, err := palette.Lighten(r.Color, GradientPercent)
		if err != nil {
			end = r.Color
		}
		for _, id := range r.Cells {
			c, err := l.Resolve(id)
			if err != nil {
				continue
			}
			byCell[id] = PaintedCell{
				Cell:        id,
				Row:         c.Row,
				Col:         c.Col,
				MessageID:   r.ID,
				Color:       r.Color,
				GradientEnd: end,
			}
		}
	}

	out := make([]PaintedCell, 0, len(byCell))
	for _, p := range byCell {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b PaintedCell) int {
		return cmp.Or(cmp.Compare(a.Row, b.Row), cmp.Compare(a.Col, b.Col))
	})
	return out
}

// Tooltip renders a record's content as HTML. Bold wraps innermost, then
// italic, then underline.
func Tooltip(r message.Record) string {
	s := html.EscapeString(r.Content)
	if r.Format.Bold {
		s = "<strong>" + s + "</strong>"
	}
	if r.Format.Italic {
		s = "<em>" + s + "</em>"
	}
	if r.Format.Underline {
		s = "<u>" + s + "</u>"
	}
	return s
}
