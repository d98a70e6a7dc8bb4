package httpapi

import (
	"chat-relay/errors"
	"encoding/json"
	stderrors "errors"
	"net/http"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	status := mapError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "server error"
	}
	writeMessage(w, status, message)
}

func mapError(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrUserNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrInvalidCommand),
		stderrors.Is(err, errors.ErrInvalidPassword),
		stderrors.Is(err, errors.ErrInvalidCredentials),
		stderrors.Is(err, errors.ErrUserAlreadyExists),
		stderrors.Is(err, errors.ErrAlreadyRequested),
		stderrors.Is(err, errors.ErrNoPendingRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
