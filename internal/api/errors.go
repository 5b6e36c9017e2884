package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// writeJSON is for the plain handlers mounted beside huma: health checks and
// the websocket endpoint.
func writeJSON(w http.ResponseWriter, status int, v any) {
	writeBody(w, "application/json", status, v)
}

// writeProblem answers with the RFC 9457 body huma uses for its own errors.
func writeProblem(w http.ResponseWriter, status int, detail string) {
	writeBody(w, "application/problem+json", status, &huma.ErrorModel{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

func writeBody(w http.ResponseWriter, contentType string, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "status", status, "error", err)
	}
}
