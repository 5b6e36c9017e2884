package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
	"github.com/ryanbastic/pixelboard/internal/metrics"
	"github.com/ryanbastic/pixelboard/internal/selection"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 64 * 1024
	wsQueueSize    = 64
)

// Frame types exchanged over the board websocket.
const (
	frameResize    = "resize"
	framePointer   = "pointer"
	frameFormat    = "format"
	frameSubmit    = "submit"
	frameCancel    = "cancel"
	frameHover     = "hover"
	frameLayout    = "layout"
	frameSelection = "selection"
	frameSnapshot  = "snapshot"
	frameTooltip   = "tooltip"
	frameError     = "error"
)

// clientFrame is an inbound websocket message. Fields are read according to
// Type.
type clientFrame struct {
	Type    string `json:"type"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Touch   bool   `json:"touch"`
	Action  string `json:"action"`
	Button  int    `json:"button"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

// serverFrame is an outbound websocket message.
type serverFrame struct {
	Type      string              `json:"type"`
	Layout    *LayoutResponse     `json:"layout,omitempty"`
	Kind      string              `json:"kind,omitempty"`
	Cells     []grid.CellID       `json:"cells,omitempty"`
	Composing bool                `json:"composing,omitempty"`
	Format    *message.Format     `json:"format,omitempty"`
	Messages  []MessageResponse   `json:"messages,omitempty"`
	Paint     []board.PaintedCell `json:"paint,omitempty"`
	Message   *MessageResponse    `json:"message,omitempty"`
	Tooltip   string              `json:"tooltip,omitempty"`
	Error     string              `json:"error,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		return sameOrigin(origin, r.Host)
	},
}

// SocketHandler binds a browser to a board session: pointer and prompt input
// flow in, selection and board state flow out.
type SocketHandler struct {
	board    *board.Board
	viewport grid.Viewport
	logger   *slog.Logger
}

func NewSocketHandler(b *board.Board, viewport grid.Viewport, logger *slog.Logger) *SocketHandler {
	return &SocketHandler{board: b, viewport: viewport, logger: logger}
}

func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v, err := queryViewport(r, h.viewport)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, err.Error())
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	metrics.SessionOpened()
	defer metrics.SessionClosed()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &socketConn{
		conn:   conn,
		board:  h.board,
		logger: h.logger,
		out:    make(chan serverFrame, wsQueueSize),
		dirty:  make(chan struct{}, 1),
	}
	c.session = board.NewSession(h.board, v, c.onSelection)

	stop := h.board.Watch(func(message.Snapshot) { c.markDirty() })
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.writeLoop(ctx); err != nil {
			h.logger.Debug("websocket write stopped", "error", err)
		}
		cancel()
		conn.Close()
	}()

	c.send(ctx, layoutFrame(v, c.session.Layout()))
	c.markDirty()

	if err := c.readLoop(ctx); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.logger.Debug("websocket read stopped", "error", err)
	}
	cancel()
	<-done
}

// queryViewport reads width, height and touch from the upgrade request.
// sameOrigin reports whether the Origin header names the host being dialled.
func sameOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, strings.TrimSpace(host))
}

func queryViewport(r *http.Request, def grid.Viewport) (grid.Viewport, error) {
	q := r.URL.Query()
	width, _ := strconv.Atoi(q.Get("width"))
	height, _ := strconv.Atoi(q.Get("height"))
	touch, _ := strconv.ParseBool(q.Get("touch"))
	v := resolveViewport(def, max(width, 0), max(height, 0), touch)
	return v, v.Validate()
}

type socketConn struct {
	conn    *websocket.Conn
	board   *board.Board
	session *board.Session
	logger  *slog.Logger

	out   chan serverFrame
	dirty chan struct{}
}

// markDirty schedules a snapshot frame. Repeated changes coalesce.
func (c *socketConn) markDirty() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *socketConn) send(ctx context.Context, f serverFrame) {
	select {
	case c.out <- f:
	case <-ctx.Done():
	}
}

func (c *socketConn) writeLoop(ctx context.Context) error {
	for {
		var f serverFrame
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f = <-c.out:
		case <-c.dirty:
			f = c.snapshotFrame()
		}
		if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return err
		}
		if err := c.conn.WriteJSON(f); err != nil {
			return err
		}
	}
}

func (c *socketConn) readLoop(ctx context.Context) error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		var f clientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			c.send(ctx, serverFrame{Type: frameError, Error: "malformed frame"})
			continue
		}
		c.handle(ctx, f)
	}
}

func (c *socketConn) handle(ctx context.Context, f clientFrame) {
	switch f.Type {
	case frameResize:
		if f.Width <= 0 || f.Height <= 0 {
			c.send(ctx, serverFrame{Type: frameError, Error: "resize needs a positive width and height"})
			return
		}
		v := grid.Viewport{Width: f.Width, Height: f.Height, Touch: f.Touch}
		if err := v.Validate(); err != nil {
			c.send(ctx, serverFrame{Type: frameError, Error: err.Error()})
			return
		}
		c.send(ctx, layoutFrame(v, c.session.Resize(v)))
		c.markDirty()

	case framePointer:
		action, ok := parseAction(f.Action)
		if !ok {
			c.send(ctx, serverFrame{Type: frameError, Error: "unknown pointer action " + strconv.Quote(f.Action)})
			return
		}
		c.session.PointerAt(action, selection.Button(f.Button), f.X, f.Y)

	case frameFormat:
		format, err := c.session.ToggleFormat(f.Format)
		if err != nil {
			c.send(ctx, serverFrame{Type: frameError, Error: err.Error()})
			return
		}
		c.send(ctx, serverFrame{Type: frameFormat, Format: &format})

	case frameSubmit:
		rec, err := c.session.Submit(ctx, f.Content)
		switch {
		case errors.Is(err, message.ErrInvalidSubmission), errors.Is(err, board.ErrNotComposing):
			c.send(ctx, serverFrame{Type: frameError, Error: err.Error()})
		case err != nil:
			c.logger.Error("websocket submit failed", "error", err)
			c.send(ctx, serverFrame{Type: frameError, Error: "failed to post message"})
		default:
			c.logger.Debug("websocket message posted", "message_id", rec.ID)
		}

	case frameCancel:
		c.session.Cancel()

	case frameHover:
		cell, ok := c.session.Layout().CellAt(f.X, f.Y)
		if !ok {
			c.send(ctx, serverFrame{Type: frameTooltip})
			return
		}
		rec, html, ok := c.session.TooltipAt(cell)
		if !ok {
			c.send(ctx, serverFrame{Type: frameTooltip})
			return
		}
		resp := messageToResponse(rec)
		c.send(ctx, serverFrame{Type: frameTooltip, Message: &resp, Tooltip: html})

	default:
		c.send(ctx, serverFrame{Type: frameError, Error: "unknown frame type " + strconv.Quote(f.Type)})
	}
}

// onSelection runs synchronously on the read loop, from within session calls.
func (c *socketConn) onSelection(ev selection.Event) {
	f := serverFrame{Type: frameSelection, Cells: ev.Cells}
	switch ev.Kind {
	case selection.Changed:
		f.Kind = "changed"
	case selection.Committed:
		f.Kind = "committed"
		f.Composing = true
	case selection.Cleared:
		f.Kind = "cleared"
	}
	select {
	case c.out <- f:
	default:
		c.logger.Warn("websocket queue full, dropping selection frame", "kind", f.Kind)
	}
}

func layoutFrame(v grid.Viewport, l grid.Layout) serverFrame {
	resp := layoutToResponse(v, l)
	return serverFrame{Type: frameLayout, Layout: &resp}
}

func (c *socketConn) snapshotFrame() serverFrame {
	snap := c.board.Snapshot()
	msgs := make([]MessageResponse, len(snap))
	for i, r := range snap {
		msgs[i] = messageToResponse(r)
	}
	return serverFrame{Type: frameSnapshot, Messages: msgs, Paint: c.session.Paint()}
}

func parseAction(s string) (selection.Action, bool) {
	switch s {
	case "down":
		return selection.Down, true
	case "move":
		return selection.Move, true
	case "up":
		return selection.Up, true
	}
	return 0, false
}
