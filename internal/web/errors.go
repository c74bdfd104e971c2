package web

// errors.go writes the JSON envelopes shared by every endpoint.
//
// Client errors carry a short "error" and an optional "message". Server
// errors add "details" (the wrapped error text) and a support "code" from
// core.MapError; in development they also echo the stack trace.

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/hrdata/internal/core"
	"github.com/JonMunkholm/hrdata/internal/logging"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// respondError logs err with the request context and writes the envelope.
// publicError is the stable "error" text clients match on.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, publicError string, err error) {
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", userMsg.Code,
		"error", err,
	)

	resp := ErrorResponse{Error: publicError}
	if status >= http.StatusInternalServerError && err != nil {
		resp.Details = err.Error()
		resp.Code = userMsg.Code
		if s.cfg.IsDevelopment() {
			resp.Stack = fmt.Sprintf("%+v", err)
		}
	}
	writeJSONStatus(w, status, resp)
}

// respondClientError writes a 4xx envelope whose text needs no mapping.
func respondClientError(w http.ResponseWriter, status int, publicError, message string) {
	writeJSONStatus(w, status, ErrorResponse{Error: publicError, Message: message})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
