package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusAccepted, LayoutResponse{CellSize: 20, Rows: 5, Cols: 40})

	if w.Code != http.StatusAccepted {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusAccepted)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}

	var got LayoutResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CellSize != 20 || got.Rows != 5 || got.Cols != 40 {
		t.Errorf("body: got %+v", got)
	}
}

func TestWriteProblem(t *testing.T) {
	tests := []struct {
		status    int
		detail    string
		wantTitle string
	}{
		{http.StatusBadRequest, "invalid viewport: 0x99999", "Bad Request"},
		{http.StatusNotFound, "no route for GET /v1/nope", "Not Found"},
		{http.StatusInternalServerError, "internal server error", "Internal Server Error"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeProblem(w, tt.status, tt.detail)

		if w.Code != tt.status {
			t.Errorf("status: got %d, want %d", w.Code, tt.status)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Errorf("Content-Type: got %q", ct)
		}
		var resp huma.ErrorModel
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != tt.status || resp.Title != tt.wantTitle || resp.Detail != tt.detail {
			t.Errorf("body: got %+v", resp)
		}
	}
}

// Plain routes and huma routes must fail with the same body shape.
func TestWriteProblem_MatchesHumaErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/v1/messages/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	fromHuma := decode[huma.ErrorModel](t, w)

	w = env.do(t, http.MethodGet, "/v1/nope", nil)
	fromMux := decode[huma.ErrorModel](t, w)

	if fromHuma.Status != fromMux.Status || fromHuma.Title != fromMux.Title {
		t.Errorf("huma %+v and router %+v disagree", fromHuma, fromMux)
	}
	if fromMux.Detail == "" {
		t.Error("router 404 should carry a detail")
	}
}
