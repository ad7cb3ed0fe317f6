package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errResponse is the body of every non-2xx API response.
type errResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	hdr := w.Header()
	hdr.Set("Content-Type", "application/json; charset=utf-8")
	hdr.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		h.logger.Error("api: json encode failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errResponse{Error: msg, Status: status})
}

func (h *Handler) notFound(w http.ResponseWriter, what string) {
	h.writeError(w, http.StatusNotFound, what+" not found")
}
