package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/config"
	"github.com/ryanbastic/pixelboard/internal/message"
	"github.com/spf13/cobra"
)

const contentWidth = 40

func addMessages(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "List the messages on the board, oldest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			return withBoard(cmd.Context(), cfg, newLogger(cfg.LogLevel, false), func(b *board.Board) error {
				snap := b.Snapshot()
				if len(snap) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no messages")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), messageTable(snap))
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}

// messageTable lays snap out one record per row.
func messageTable(snap message.Snapshot) *uitable.Table {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Posted"), bold.Sprint("Color"),
		bold.Sprint("Cells"), bold.Sprint("Format"), bold.Sprint("Content"))
	for _, r := range snap {
		tbl.AddRow(
			r.ID,
			time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339),
			r.Color,
			cellSpan(r),
			formatFlags(r.Format),
			ansi.Truncate(strings.ReplaceAll(r.Content, "\n", " "), contentWidth, "…"),
		)
	}
	tbl.RightAlign(3)
	return tbl
}

// cellSpan summarises a record's region as "first..last (n)".
func cellSpan(r message.Record) string {
	switch len(r.Cells) {
	case 0:
		return "-"
	case 1:
		return string(r.Cells[0])
	}
	return fmt.Sprintf("%s..%s (%d)", r.Cells[0], r.Cells[len(r.Cells)-1], len(r.Cells))
}

func formatFlags(f message.Format) string {
	var out []string
	if f.Bold {
		out = append(out, "bold")
	}
	if f.Italic {
		out = append(out, "italic")
	}
	if f.Underline {
		out = append(out, "underline")
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}
