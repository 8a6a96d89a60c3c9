package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ignite/graphmail/internal/service/sending"
)

// Sentinel errors by HTTP status class, usable with errors.Is on the error
// returned by Send.
var (
	ErrUnauthorised = errors.New("graph: unauthorised")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrRateLimited  = errors.New("graph: rate limited")
	ErrBadRequest   = errors.New("graph: bad request")
	ErrServerError  = errors.New("graph: server error")
)

// CodeTokenAcquisition is reported when no access token could be obtained.
const CodeTokenAcquisition = "TokenAcquisitionFailed"

// recipientCodes are Graph error codes caused by the recipient address.
var recipientCodes = map[string]bool{
	"ErrorInvalidRecipients":     true,
	"ErrorRecipientNotFound":     true,
	"ErrorInvalidSmtpAddress":    true,
	"ErrorMailRecipientNotFound": true,
}

// IsRecipientCode reports whether a Graph error code blames the recipient.
func IsRecipientCode(code string) bool {
	return recipientCodes[code]
}

// statusSentinel maps an HTTP status to a sentinel error.
func statusSentinel(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return ErrUnauthorised
	case statusCode == http.StatusForbidden:
		return ErrForbidden
	case statusCode == http.StatusNotFound:
		return ErrNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case statusCode >= 500:
		return ErrServerError
	case statusCode >= 400:
		return ErrBadRequest
	}
	return nil
}

// ResponseError is a non-2xx Graph response.
type ResponseError struct {
	*sending.TransportError
	sentinel error
}

func (e *ResponseError) Unwrap() []error {
	if e.sentinel == nil {
		return []error{e.TransportError}
	}
	return []error{e.TransportError, e.sentinel}
}

// parseError builds the error for a failed sendMail response body.
func parseError(statusCode int, body []byte) error {
	var env errorResponse
	code, msg := "", ""
	if err := json.Unmarshal(body, &env); err == nil {
		code, msg = env.Error.Code, env.Error.Message
	}
	if code == "" {
		code = fmt.Sprintf("HTTP%d", statusCode)
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 256 {
			msg = msg[:256]
		}
		if msg == "" {
			msg = http.StatusText(statusCode)
		}
	}

	return &ResponseError{
		TransportError: &sending.TransportError{
			Code:                  code,
			Message:               msg,
			StatusCode:            statusCode,
			RecipientAttributable: IsRecipientCode(code),
		},
		sentinel: statusSentinel(statusCode),
	}
}
