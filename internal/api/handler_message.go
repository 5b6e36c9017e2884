package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
	"github.com/ryanbastic/pixelboard/internal/selection"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// --- Huma Input/Output types ---

type CoordinateBody struct {
	Row int `json:"row" doc:"Zero-based row" minimum:"0"`
	Col int `json:"col" doc:"Zero-based column" minimum:"0"`
}

type FormatBody struct {
	Bold      bool `json:"bold,omitempty" doc:"Render the text bold"`
	Italic    bool `json:"italic,omitempty" doc:"Render the text italic"`
	Underline bool `json:"underline,omitempty" doc:"Render the text underlined"`
}

type ViewportBody struct {
	Width  int  `json:"width" doc:"Viewport width in px" minimum:"0" maximum:"8192"`
	Height int  `json:"height" doc:"Viewport height in px" minimum:"0" maximum:"8192"`
	Touch  bool `json:"touch,omitempty" doc:"Viewport belongs to a touch device"`
}

type CreateMessageBody struct {
	Cells    []string        `json:"cells,omitempty" doc:"Explicit cell ids, row-col; takes precedence over anchor/current"`
	Anchor   *CoordinateBody `json:"anchor,omitempty" doc:"Corner where the drag started"`
	Current  *CoordinateBody `json:"current,omitempty" doc:"Corner where the drag was released"`
	Content  string          `json:"content" doc:"Message text" required:"true"`
	Format   *FormatBody     `json:"format,omitempty" doc:"Formatting toggles"`
	Viewport *ViewportBody   `json:"viewport,omitempty" doc:"Grid the cells must lie on; defaults to the server viewport"`
}

type CreateMessageInput struct {
	Body CreateMessageBody
}

type CreateMessageOutput struct {
	Body MessageResponse
}

type ListMessagesInput struct {
	Limit  int    `query:"limit" doc:"Maximum number of messages to return" minimum:"0" maximum:"500"`
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
}

type ListMessagesResponse struct {
	Messages   []MessageResponse `json:"messages"`
	NextCursor string            `json:"next_cursor,omitempty" doc:"Cursor for the next page, empty on the last page"`
}

type ListMessagesOutput struct {
	Body ListMessagesResponse
}

type GetMessageInput struct {
	MessageID string `path:"message_id" doc:"Message id" example:"message-1700000000000"`
}

type MessageDetailResponse struct {
	MessageResponse
	Tooltip string `json:"tooltip" doc:"Escaped, formatted tooltip HTML"`
}

type GetMessageOutput struct {
	Body MessageDetailResponse
}

// --- Handler ---

type MessageHandler struct {
	board    *board.Board
	viewport grid.Viewport
	logger   *slog.Logger
}

// NewMessageHandler checks submitted cells against viewport's grid unless a
// request names its own viewport.
func NewMessageHandler(b *board.Board, viewport grid.Viewport, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{board: b, viewport: viewport, logger: logger}
}

func registerMessageRoutes(api huma.API, h *MessageHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-message",
		Method:        http.MethodPost,
		Path:          "/v1/messages",
		Summary:       "Post a message over a selection",
		Tags:          []string{"messages"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateMessage)

	huma.Register(api, huma.Operation{
		OperationID: "list-messages",
		Method:      http.MethodGet,
		Path:        "/v1/messages",
		Summary:     "List messages, oldest first",
		Tags:        []string{"messages"},
	}, h.ListMessages)

	huma.Register(api, huma.Operation{
		OperationID: "get-message",
		Method:      http.MethodGet,
		Path:        "/v1/messages/{message_id}",
		Summary:     "Get a message and its tooltip",
		Tags:        []string{"messages"},
	}, h.GetMessage)
}

func (h *MessageHandler) CreateMessage(ctx context.Context, input *CreateMessageInput) (*CreateMessageOutput, error) {
	v := h.viewport
	if bv := input.Body.Viewport; bv != nil {
		v = grid.Viewport{Width: bv.Width, Height: bv.Height, Touch: bv.Touch}
	}
	if err := v.Validate(); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	cells, err := selectionCells(input.Body, grid.Compute(v))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	var format message.Format
	if f := input.Body.Format; f != nil {
		format = message.Format{Bold: f.Bold, Italic: f.Italic, Underline: f.Underline}
	}

	rec, err := h.board.Post(ctx, cells, input.Body.Content, format)
	if err != nil {
		if errors.Is(err, message.ErrInvalidSubmission) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		h.logger.Error("failed to post message", "cells", len(cells), "error", err)
		return nil, huma.Error500InternalServerError("failed to post message")
	}

	return &CreateMessageOutput{Body: messageToResponse(rec)}, nil
}

// selectionCells returns the explicit cell list, or the rectangle spanned by
// anchor and current. Neither given yields an empty selection. Every cell,
// and both corners, must lie on l.
func selectionCells(body CreateMessageBody, l grid.Layout) ([]grid.CellID, error) {
	if len(body.Cells) > 0 {
		cells := make([]grid.CellID, len(body.Cells))
		for i, s := range body.Cells {
			c, err := l.Resolve(grid.CellID(s))
			if err != nil {
				return nil, err
			}
			cells[i] = c.ID()
		}
		return cells, nil
	}
	switch {
	case body.Anchor == nil && body.Current == nil:
		return nil, nil
	case body.Anchor == nil || body.Current == nil:
		return nil, fmt.Errorf("anchor and current must be given together")
	}
	a := grid.Coordinate{Row: body.Anchor.Row, Col: body.Anchor.Col}
	b := grid.Coordinate{Row: body.Current.Row, Col: body.Current.Col}
	for _, c := range []grid.Coordinate{a, b} {
		if !l.Contains(c) {
			return nil, fmt.Errorf("%w: %s not in %dx%d", grid.ErrStaleCoordinate, c.ID(), l.Rows, l.Cols)
		}
	}
	return selection.Rectangle(a, b), nil
}

func (h *MessageHandler) ListMessages(ctx context.Context, input *ListMessagesInput) (*ListMessagesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	snap := h.board.Snapshot()
	start := 0
	if input.Cursor != "" {
		c, err := DecodeCursor(input.Cursor)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid cursor")
		}
		start = resumeAt(snap, c)
	}

	end := min(start+limit, len(snap))
	resp := ListMessagesResponse{Messages: make([]MessageResponse, 0, end-start)}
	for _, r := range snap[start:end] {
		resp.Messages = append(resp.Messages, messageToResponse(r))
	}
	if end < len(snap) {
		last := snap[end-1]
		next, err := (&Cursor{After: last.ID, Timestamp: last.Timestamp}).Encode()
		if err != nil {
			h.logger.Error("failed to encode cursor", "message_id", last.ID, "error", err)
			return nil, huma.Error500InternalServerError("failed to encode cursor")
		}
		resp.NextCursor = next
	}

	return &ListMessagesOutput{Body: resp}, nil
}

// resumeAt returns the index following the cursor's record. When that record
// is gone, listing resumes at the first record created after it.
func resumeAt(snap message.Snapshot, c *Cursor) int {
	for i, r := range snap {
		if r.ID == c.After {
			return i + 1
		}
	}
	for i, r := range snap {
		if r.Timestamp > c.Timestamp {
			return i
		}
	}
	return len(snap)
}

func (h *MessageHandler) GetMessage(ctx context.Context, input *GetMessageInput) (*GetMessageOutput, error) {
	rec, ok := h.board.Record(input.MessageID)
	if !ok {
		return nil, huma.Error404NotFound("message not found")
	}
	return &GetMessageOutput{Body: MessageDetailResponse{
		MessageResponse: messageToResponse(rec),
		Tooltip:         board.Tooltip(rec),
	}}, nil
}
