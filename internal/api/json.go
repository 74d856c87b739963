package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/othala/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps the application error taxonomy onto HTTP status codes.
// Unknown errors are logged and surfaced as 500 without internals.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrParentNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("parent work not found"))
	case errors.Is(err, apperr.ErrDuplicateWork):
		writeJSON(w, http.StatusConflict, errorBody("work already registered"))
	case errors.Is(err, apperr.ErrDuplicateDerivative):
		writeJSON(w, http.StatusConflict, errorBody("derivative already recorded"))
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorBody("forbidden"))
	case errors.Is(err, apperr.ErrInvalidConfig):
		writeJSON(w, http.StatusBadRequest, errorBody("reward outside configured bound"))
	case errors.Is(err, apperr.ErrLengthMismatch),
		errors.Is(err, apperr.ErrEmptyBatch),
		errors.Is(err, apperr.ErrBatchTooLarge),
		errors.Is(err, apperr.ErrInvalidRecipient),
		errors.Is(err, apperr.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInsufficientFunds):
		writeJSON(w, http.StatusConflict, errorBody("insufficient funds"))
	case errors.Is(err, apperr.ErrSupplyCap):
		writeJSON(w, http.StatusConflict, errorBody("supply cap exceeded"))
	case errors.Is(err, apperr.ErrReentrancy):
		writeJSON(w, http.StatusConflict, errorBody("reentrant call rejected"))
	case errors.Is(err, apperr.ErrUpstream):
		slog.Error("upstream collaborator failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("upstream failure"))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
