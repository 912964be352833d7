package http

import (
	"encoding/json"
	"net/http"

	"folio-chat/errors"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// writeDomainError maps err to a status and never leaks infrastructure details.
func writeDomainError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	message := errors.ClientMessage(err, http.StatusText(status))
	switch status {
	case http.StatusBadRequest:
		writeError(w, status, "INVALID_REQUEST", message)
	case http.StatusUnauthorized:
		writeError(w, status, "UNAUTHENTICATED", errors.ErrUnauthenticated.Error())
	case http.StatusForbidden:
		writeError(w, status, "FORBIDDEN", errors.ErrForbidden.Error())
	case http.StatusNotFound:
		writeError(w, status, "NOT_FOUND", errors.ErrMessageNotFound.Error())
	default:
		writeError(w, status, "INTERNAL_ERROR", "internal server error")
	}
}
