package server

import (
	"encoding/json"
	"net/http"

	"github.com/hupe1980/assetflow/core"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  core.Code `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// Fail writes err with the status derived from its core error code.
func Fail(w http.ResponseWriter, err error) {
	JSON(w, StatusFor(err), ErrorResponse{Error: err.Error(), Code: core.CodeOf(err)})
}

// StatusFor maps the outermost core error code of err to an HTTP status.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch core.CodeOf(err) {
	case core.CodeNotFound:
		return http.StatusNotFound
	case core.CodeValidation:
		return http.StatusBadRequest
	case core.CodeExecutorNotFound, core.CodeExecutorFailure:
		return http.StatusUnprocessableEntity
	case core.CodeTransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.NewValidation("invalid request body: " + err.Error())
	}
	return nil
}
