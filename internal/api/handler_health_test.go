package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/gateway"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
)

// --- Mock Pinger ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error {
	return m.err
}

// --- Livez ---

func TestLivez_ReturnsOK(t *testing.T) {
	server := newTestEnv(t, nil).handler

	req := httptest.NewRequest(http.MethodGet, "/v1/livez", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status: got %q, want %q", resp["status"], "ok")
	}
}

// --- Readyz ---

func TestReadyz_NoBackends_ReturnsOK(t *testing.T) {
	server := newTestEnv(t, nil).handler

	req := httptest.NewRequest(http.MethodGet, "/v1/readyz", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusOK)
	}
}

func TestReadyz_AllHealthy(t *testing.T) {
	backends := map[string]Pinger{
		"pg1": &mockPinger{},
		"pg2": &mockPinger{},
	}
	server := newTestEnv(t, backends).handler

	req := httptest.NewRequest(http.MethodGet, "/v1/readyz", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp readyzResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if len(resp.Backends) != 2 {
		t.Fatalf("backends: got %d, want 2", len(resp.Backends))
	}
	for name, bs := range resp.Backends {
		if bs.Status != "ok" {
			t.Errorf("backend %s: got %q, want %q", name, bs.Status, "ok")
		}
	}
}

func TestReadyz_OneBackendDown(t *testing.T) {
	backends := map[string]Pinger{
		"pg1": &mockPinger{},
		"pg2": &mockPinger{err: errors.New("connection refused")},
	}
	server := newTestEnv(t, backends).handler

	req := httptest.NewRequest(http.MethodGet, "/v1/readyz", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d\nbody: %s", w.Code, http.StatusServiceUnavailable, w.Body.String())
	}

	var resp readyzResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unavailable" {
		t.Errorf("status: got %q, want %q", resp.Status, "unavailable")
	}
	if resp.Backends["pg1"].Status != "ok" {
		t.Errorf("pg1: got %q, want %q", resp.Backends["pg1"].Status, "ok")
	}
	if resp.Backends["pg2"].Status != "error" {
		t.Errorf("pg2: got %q, want %q", resp.Backends["pg2"].Status, "error")
	}
	if resp.Backends["pg2"].Error != "connection refused" {
		t.Errorf("pg2 error: got %q", resp.Backends["pg2"].Error)
	}
}

// --- /v1/health alias ---

func TestHealth_BackwardsCompat_BehavesAsReadyz(t *testing.T) {
	backends := map[string]Pinger{
		"pg1": &mockPinger{},
	}
	server := newTestEnv(t, backends).handler

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusOK)
	}

	var resp readyzResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if resp.Backends["pg1"].Status != "ok" {
		t.Errorf("pg1: got %q, want %q", resp.Backends["pg1"].Status, "ok")
	}
}

// failingGateway rejects every save.
type failingGateway struct {
	*gateway.Memory
}

func (failingGateway) Save(context.Context, message.Snapshot) error {
	return errors.New("disk full")
}

func TestReadyz_OpenBreakerMarksBoardUnavailable(t *testing.T) {
	gw := gateway.Guard(failingGateway{gateway.NewMemory()}, 1, time.Minute, testLogger())
	b := board.New(gw, fixedColor(testColor), testLogger())
	server := NewServer(testLogger(), b, nil, testViewport, map[string]Pinger{"board": b})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("before failure: got %d, want %d", w.Code, http.StatusOK)
	}

	if _, err := b.Post(context.Background(), []grid.CellID{"0-0"}, "hi", message.Format{}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("after failure: got %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	var resp readyzResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Backends["board"].Error, "circuit breaker is open") {
		t.Errorf("board error: got %q", resp.Backends["board"].Error)
	}
}
