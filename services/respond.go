package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps service errors onto status codes. Only caller-facing categories echo the error text.
func writeError(w http.ResponseWriter, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "status", status)
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrNoAccountConnected), errors.Is(err, ErrPrecondition):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ErrCollaborator):
		return http.StatusBadGateway, "An external service failed, please try again"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", ErrInvalidInput)
	}
	return nil
}

// owned hides other owners' records behind not found
func owned(entity, id, recordOwner, ownerID string) error {
	if recordOwner != ownerID {
		return notFound(entity, id)
	}
	return nil
}
