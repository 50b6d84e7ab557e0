package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ai-stack-deploy/engine/internal/api/types"
)

// includeErrorDetails exposes wrapped error causes in responses. Enabled only
// when the process runs with DEBUG set.
var includeErrorDetails bool

func EnableErrorDetails() { includeErrorDetails = true }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError derives the HTTP status from the error code and emits the
// standard failure envelope.
func writeError(w http.ResponseWriter, err error) {
	status := types.StatusForError(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err, includeErrorDetails),
	})
}

func writeErrorStr(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: code, Message: msg},
	})
}
