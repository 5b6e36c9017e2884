package cli

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/ryanbastic/pixelboard/internal/config"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/spf13/cobra"
)

func addLayout(topLevel *cobra.Command) {
	vo := &ViewportOptions{}

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show the grid a viewport gets.",
		Example: `
pixelboard layout --width 1280 --height 720
pixelboard layout --width 390 --height 844 --touch
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := vo.Viewport(config.Load())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), layoutTable(v, grid.Compute(v)))
			return nil
		},
	}

	addViewportArgs(cmd, vo)
	topLevel.AddCommand(cmd)
}

func layoutTable(v grid.Viewport, l grid.Layout) *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("viewport:", fmt.Sprintf("%dx%d", v.Width, v.Height))
	tbl.AddRow("touch:", v.Touch)
	tbl.AddRow("cell size:", fmt.Sprintf("%dpx", l.CellSize))
	tbl.AddRow("rows:", l.Rows)
	tbl.AddRow("cols:", l.Cols)
	tbl.AddRow("cells:", l.Len())
	return tbl
}
