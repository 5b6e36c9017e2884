package cli

import (
	"errors"
	"fmt"

	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/config"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
	"github.com/ryanbastic/pixelboard/internal/selection"
	"github.com/spf13/cobra"
)

// ErrVolatileBackend is returned when post would write to a board that does
// not outlive the command.
var ErrVolatileBackend = errors.New("post needs a persistent backend; set BACKEND to disk, sqlite or postgres")

// PostOptions holds the flags of the post command.
type PostOptions struct {
	From   string
	To     string
	Text   string
	Format message.Format
}

func addPostArgs(cmd *cobra.Command, o *PostOptions) {
	cmd.Flags().StringVar(&o.From, "from", "", "Corner cell of the region, as row-col.")
	cmd.Flags().StringVar(&o.To, "to", "", "Opposite corner cell, as row-col. Defaults to --from.")
	cmd.Flags().StringVar(&o.Text, "text", "", "Message content.")
	cmd.Flags().BoolVar(&o.Format.Bold, "bold", false, "Render the message bold.")
	cmd.Flags().BoolVar(&o.Format.Italic, "italic", false, "Render the message italic.")
	cmd.Flags().BoolVar(&o.Format.Underline, "underline", false, "Underline the message.")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("text")
}

// Cells returns the rectangle spanned by From and To. Both corners must lie
// on l.
func (o *PostOptions) Cells(l grid.Layout) ([]grid.CellID, error) {
	from, err := l.Resolve(grid.CellID(o.From))
	if err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	to := from
	if o.To != "" {
		if to, err = l.Resolve(grid.CellID(o.To)); err != nil {
			return nil, fmt.Errorf("--to: %w", err)
		}
	}
	return selection.Rectangle(from, to), nil
}

func addPost(topLevel *cobra.Command) {
	po := &PostOptions{}

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Attach a message to a rectangle of cells.",
		Long: `Attach a message to a rectangle of cells.

Both corners must lie on the grid of the configured viewport
(VIEWPORT_WIDTH, VIEWPORT_HEIGHT, VIEWPORT_TOUCH). The in-memory backend
is refused since the message would be lost when the command exits.`,
		Example: `
pixelboard post --from 0-0 --to 2-4 --text "hello"
pixelboard post --from 3-3 --text "dot" --bold --underline
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.Backend == config.BackendMemory {
				return ErrVolatileBackend
			}
			v := grid.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight, Touch: cfg.ViewportTouch}
			if err := v.Validate(); err != nil {
				return err
			}
			cells, err := po.Cells(grid.Compute(v))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withBoard(ctx, cfg, newLogger(cfg.LogLevel, false), func(b *board.Board) error {
				rec, err := b.Post(ctx, cells, po.Text, po.Format)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d cells\n", rec.ID, rec.Color, len(rec.Cells))
				return nil
			})
		},
	}

	addPostArgs(cmd, po)
	topLevel.AddCommand(cmd)
}
