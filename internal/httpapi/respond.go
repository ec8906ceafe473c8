package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
)

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondRepositoryError maps the repository sentinels onto HTTP statuses.
// notFoundMsg and conflictMsg carry the route-specific wording; anything
// else is a 500 with a generic message so internals stay off the wire.
func respondRepositoryError(w http.ResponseWriter, err error, notFoundMsg, conflictMsg, fallbackMsg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, repository.ErrConflict):
		respondError(w, http.StatusConflict, conflictMsg)
	default:
		respondError(w, http.StatusInternalServerError, fallbackMsg)
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
