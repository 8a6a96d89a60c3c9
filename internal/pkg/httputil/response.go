package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/pkg/logger"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("encode response", "error", err)
	}
}

func OK(w http.ResponseWriter, data any) { JSON(w, http.StatusOK, data) }

// Accepted acknowledges work that will finish asynchronously.
func Accepted(w http.ResponseWriter, data any) { JSON(w, http.StatusAccepted, data) }

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// Conflict writes a 409 with a machine-readable code.
func Conflict(w http.ResponseWriter, code, message string) {
	JSON(w, http.StatusConflict, ErrorResponse{Error: message, Code: code})
}

// ConfigurationError writes a 422 naming the offending profile key.
func ConfigurationError(w http.ResponseWriter, err *domain.ConfigurationError) {
	JSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   err.Error(),
		Code:    "configuration_error",
		Details: map[string]string{"key": err.Key},
	})
}

// InternalError logs err and answers with a generic 500 so internals do not
// leak to clients.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal server error")
}

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 4 << 20

// Decode parses the JSON body into dst, answering 413 when the body exceeds
// MaxBodyBytes and 400 on any other failure.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
