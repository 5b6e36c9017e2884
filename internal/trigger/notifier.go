package trigger

import (
	"context"
	"log/slog"
	"time"

	"github.com/ryanbastic/pixelboard/internal/message"
)

// Notifier dispatches board notifications to subscribed plugins via JSON-RPC.
// It satisfies board.Observer.
type Notifier struct {
	board     string
	registry  *PluginRegistry
	rpcClient *RPCClient
	logger    *slog.Logger
}

// NewNotifier creates a Notifier for the named board.
func NewNotifier(board string, registry *PluginRegistry, rpcClient *RPCClient, logger *slog.Logger) *Notifier {
	return &Notifier{
		board:     board,
		registry:  registry,
		rpcClient: rpcClient,
		logger:    logger,
	}
}

// MessageCreated notifies message.created subscribers.
func (n *Notifier) MessageCreated(ctx context.Context, r message.Record) {
	n.notify(ctx, EventMessageCreated, r)
}

// MessagesPruned sends one message.pruned notification per removed record.
func (n *Notifier) MessagesPruned(ctx context.Context, rs []message.Record) {
	for _, r := range rs {
		n.notify(ctx, EventMessagePruned, r)
	}
}

// notify fires a goroutine per subscribed plugin. Errors are logged, not
// propagated; board writes are never blocked by slow plugins. Delivery
// outlives the caller's context.
func (n *Notifier) notify(ctx context.Context, event string, r message.Record) {
	plugins := n.registry.ForEvent(event)
	if len(plugins) == 0 {
		return
	}

	params := MessageParams{
		Event:   event,
		Board:   n.board,
		Message: r.Clone(),
		SentAt:  time.Now(),
	}
	ctx = context.WithoutCancel(ctx)

	for _, p := range plugins {
		go func(endpoint, pluginName string) {
			resp, err := n.rpcClient.Call(ctx, endpoint, event, params)
			if err != nil {
				n.logger.Error("plugin rpc failed", "plugin", pluginName, "endpoint", endpoint, "event", event, "message_id", r.ID, "error", err)
				return
			}
			if resp.Error != nil {
				n.logger.Error("plugin rpc returned error", "plugin", pluginName, "endpoint", endpoint, "event", event, "message_id", r.ID, "error", resp.Error)
			}
		}(p.Endpoint, p.Name)
	}
}
