package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorIncorrectMetadata):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
