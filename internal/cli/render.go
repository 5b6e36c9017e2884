package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/config"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/spf13/cobra"
)

const (
	paintedGlyph = "██"
	emptyGlyph   = "··"
)

// ViewportOptions selects the viewport a command lays the grid out for.
type ViewportOptions struct {
	Width  int
	Height int
	Touch  bool
}

func addViewportArgs(cmd *cobra.Command, o *ViewportOptions) {
	cmd.Flags().IntVar(&o.Width, "width", 0, "Viewport width in pixels. Defaults to VIEWPORT_WIDTH.")
	cmd.Flags().IntVar(&o.Height, "height", 0, "Viewport height in pixels. Defaults to VIEWPORT_HEIGHT.")
	cmd.Flags().BoolVar(&o.Touch, "touch", false, "Treat the viewport as a touch device.")
}

// Viewport fills unset dimensions from cfg.
func (o *ViewportOptions) Viewport(cfg config.Config) (grid.Viewport, error) {
	v := grid.Viewport{Width: o.Width, Height: o.Height, Touch: o.Touch || cfg.ViewportTouch}
	if v.Width == 0 {
		v.Width = cfg.ViewportWidth
	}
	if v.Height == 0 {
		v.Height = cfg.ViewportHeight
	}
	if err := v.Validate(); err != nil {
		return grid.Viewport{}, err
	}
	return v, nil
}

func addRender(topLevel *cobra.Command) {
	vo := &ViewportOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw the board in the terminal as a given viewport would see it.",
		Example: `
pixelboard render --width 390 --height 844 --touch
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			v, err := vo.Viewport(cfg)
			if err != nil {
				return err
			}
			return withBoard(cmd.Context(), cfg, newLogger(cfg.LogLevel, false), func(b *board.Board) error {
				l := grid.Compute(v)
				renderBoard(cmd.OutOrStdout(), l, b.Paint(l))
				return nil
			})
		},
	}

	addViewportArgs(cmd, vo)
	topLevel.AddCommand(cmd)
}

// renderBoard draws l row by row, two columns per cell. Painted cells take
// their message color; the rest are dotted.
func renderBoard(w io.Writer, l grid.Layout, paint []board.PaintedCell) {
	r := lipgloss.NewRenderer(w)
	empty := r.NewStyle().Faint(true)

	colors := make(map[grid.Coordinate]string, len(paint))
	for _, p := range paint {
		colors[grid.Coordinate{Row: p.Row, Col: p.Col}] = p.Color
	}

	var sb strings.Builder
	for row := range l.Rows {
		for col := range l.Cols {
			if c, ok := colors[grid.Coordinate{Row: row, Col: col}]; ok {
				sb.WriteString(r.NewStyle().Foreground(lipgloss.Color(c)).Render(paintedGlyph))
				continue
			}
			sb.WriteString(empty.Render(emptyGlyph))
		}
		sb.WriteByte('\n')
	}
	fmt.Fprint(w, sb.String())
}
