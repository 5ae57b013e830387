package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/richway/internal/core"
)

// maxSubmitBody caps the registration form body.
const maxSubmitBody = 1 << 20

// handleSubmit registers a member.
//
// An empty body counts as an empty form. Store errors are returned with
// their raw message.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in core.SubmitInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody))
	if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		respondSubmitError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	result, err := s.submit.Submit(r.Context(), in)
	if err != nil {
		respondSubmitError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHealth reports liveness and the active store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  s.store.Backend(),
	})
}
