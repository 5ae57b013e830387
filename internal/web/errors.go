package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/richway/internal/logging"
)

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmitFailure is the JSON body of a failed submission.
type SubmitFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// logRequestError logs err with the request's id and route.
func logRequestError(r *http.Request, err error, status int) {
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)
}

// respondError logs err and writes it as {"error": ...}. The message is
// not sanitized.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	logRequestError(r, err, status)
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// respondSubmitError logs err and writes {"success": false, "error": ...}.
func respondSubmitError(w http.ResponseWriter, r *http.Request, err error, status int) {
	logRequestError(r, err, status)
	writeJSON(w, status, SubmitFailure{Success: false, Error: err.Error()})
}

// writeJSON encodes v as JSON. Encoding errors are logged since the header
// is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

func isAPIPath(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
