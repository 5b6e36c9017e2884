package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ryanbastic/pixelboard/internal/message"
)

// JSONRPCRequest is a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// MessageParams is the notification payload sent to plugins for one record.
type MessageParams struct {
	Event   string         `json:"event"`
	Board   string         `json:"board"`
	Message message.Record `json:"message"`
	SentAt  time.Time      `json:"sent_at"`
}

// errPermanent marks a failure a retry cannot fix.
var errPermanent = errors.New("permanent rpc failure")

// RPCClient sends JSON-RPC 2.0 requests over HTTP, retrying network errors
// and 5xx responses with exponential backoff.
type RPCClient struct {
	httpClient *http.Client
	nextID     atomic.Int64
	maxRetries int
	baseDelay  time.Duration
}

// NewRPCClient creates a client with the given retry settings and timeout.
func NewRPCClient(maxRetries int, baseDelay time.Duration, timeout time.Duration) *RPCClient {
	return &RPCClient{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: max(maxRetries, 0),
		baseDelay:  baseDelay,
	}
}

// Call sends a JSON-RPC 2.0 request to endpoint.
func (c *RPCClient) Call(ctx context.Context, endpoint, method string, params any) (*JSONRPCResponse, error) {
	data, err := json.Marshal(JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rpc request: %w", err)
	}

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.doRequest(ctx, endpoint, data)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if errors.Is(err, errPermanent) {
			return nil, fmt.Errorf("rpc call failed: %w", err)
		}
	}

	return nil, fmt.Errorf("rpc call failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *RPCClient) doRequest(ctx context.Context, endpoint string, data []byte) (*JSONRPCResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", errPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error: %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d: %s", errPermanent, resp.StatusCode, string(body))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal rpc response: %w", errPermanent, err)
	}
	return &rpcResp, nil
}
