package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
)

// --- Huma Input/Output types ---

type MessageResponse struct {
	ID        string         `json:"id" doc:"Message id" example:"message-1700000000000"`
	Cells     []string       `json:"cells" doc:"Claimed cell ids, row-col"`
	Content   string         `json:"content" doc:"Message text"`
	Format    message.Format `json:"format" doc:"Formatting applied to the text"`
	Timestamp int64          `json:"timestamp" doc:"Creation time in unix milliseconds"`
	Color     string         `json:"color" doc:"Fill color" example:"#FF6B6B"`
}

type GetBoardInput struct{}

type BoardResponse struct {
	Messages []MessageResponse `json:"messages" doc:"Messages in creation order"`
}

type GetBoardOutput struct {
	Body BoardResponse
}

type GetLayoutInput struct {
	Width  int  `query:"width" doc:"Viewport width in px; 0 uses the server default" minimum:"0" maximum:"8192"`
	Height int  `query:"height" doc:"Viewport height in px; 0 uses the server default" minimum:"0" maximum:"8192"`
	Touch  bool `query:"touch" doc:"Viewport belongs to a touch device"`
}

type LayoutResponse struct {
	Viewport grid.Viewport `json:"viewport" doc:"Viewport the layout was computed for"`
	CellSize int           `json:"cell_size" doc:"Cell edge in px"`
	Rows     int           `json:"rows" doc:"Whole rows that fit the viewport"`
	Cols     int           `json:"cols" doc:"Whole columns that fit the viewport"`
}

type GetLayoutOutput struct {
	Body LayoutResponse
}

type GetPaintInput struct {
	Width  int  `query:"width" doc:"Viewport width in px; 0 uses the server default" minimum:"0" maximum:"8192"`
	Height int  `query:"height" doc:"Viewport height in px; 0 uses the server default" minimum:"0" maximum:"8192"`
	Touch  bool `query:"touch" doc:"Viewport belongs to a touch device"`
}

type PaintResponse struct {
	Layout LayoutResponse      `json:"layout"`
	Cells  []board.PaintedCell `json:"cells" doc:"Painted cells, row-major"`
}

type GetPaintOutput struct {
	Body PaintResponse
}

// --- Handler ---

type BoardHandler struct {
	board    *board.Board
	viewport grid.Viewport
}

func NewBoardHandler(b *board.Board, viewport grid.Viewport) *BoardHandler {
	return &BoardHandler{board: b, viewport: viewport}
}

func registerBoardRoutes(api huma.API, h *BoardHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/v1/board",
		Summary:     "Get the board snapshot",
		Tags:        []string{"board"},
	}, h.GetBoard)

	huma.Register(api, huma.Operation{
		OperationID: "get-layout",
		Method:      http.MethodGet,
		Path:        "/v1/layout",
		Summary:     "Compute the grid layout for a viewport",
		Tags:        []string{"board"},
	}, h.GetLayout)

	huma.Register(api, huma.Operation{
		OperationID: "get-paint",
		Method:      http.MethodGet,
		Path:        "/v1/paint",
		Summary:     "Compute the paint plan for a viewport",
		Tags:        []string{"board"},
	}, h.GetPaint)
}

func (h *BoardHandler) GetBoard(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
	snap := h.board.Snapshot()
	resp := BoardResponse{Messages: make([]MessageResponse, len(snap))}
	for i, r := range snap {
		resp.Messages[i] = messageToResponse(r)
	}
	return &GetBoardOutput{Body: resp}, nil
}

func (h *BoardHandler) GetLayout(ctx context.Context, input *GetLayoutInput) (*GetLayoutOutput, error) {
	v := resolveViewport(h.viewport, input.Width, input.Height, input.Touch)
	return &GetLayoutOutput{Body: layoutToResponse(v, grid.Compute(v))}, nil
}

func (h *BoardHandler) GetPaint(ctx context.Context, input *GetPaintInput) (*GetPaintOutput, error) {
	v := resolveViewport(h.viewport, input.Width, input.Height, input.Touch)
	l := grid.Compute(v)
	cells := h.board.Paint(l)
	if cells == nil {
		cells = []board.PaintedCell{}
	}
	return &GetPaintOutput{Body: PaintResponse{Layout: layoutToResponse(v, l), Cells: cells}}, nil
}

// resolveViewport falls back to def when the request gives no dimensions.
func resolveViewport(def grid.Viewport, width, height int, touch bool) grid.Viewport {
	if width == 0 && height == 0 {
		v := def
		v.Touch = v.Touch || touch
		return v
	}
	return grid.Viewport{Width: width, Height: height, Touch: touch}
}

func layoutToResponse(v grid.Viewport, l grid.Layout) LayoutResponse {
	return LayoutResponse{Viewport: v, CellSize: l.CellSize, Rows: l.Rows, Cols: l.Cols}
}

func messageToResponse(r message.Record) MessageResponse {
	cells := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		cells[i] = string(c)
	}
	return MessageResponse{
		ID:        r.ID,
		Cells:     cells,
		Content:   r.Content,
		Format:    r.Format,
		Timestamp: r.Timestamp,
		Color:     r.Color,
	}
}
