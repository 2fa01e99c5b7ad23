package satapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// FallbackMessage is reported when neither the server nor the transport gave
// anything more specific.
const FallbackMessage = "Request failed"

// APIError is the single failure shape returned by every Client call.
type APIError struct {
	Op      string // e.g. "list assets"
	Status  int    // HTTP status, zero for transport failures
	Message string // user-facing text
	Err     error  // underlying cause, if any
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Transport reports whether the request never produced an HTTP response.
func (e *APIError) Transport() bool {
	return e != nil && e.Status == 0 && e.Err != nil
}

// IsTransport reports whether err is a transport-level APIError.
func IsTransport(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transport()
}

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// serverMessage extracts {"error": "..."} or {"message": "..."} from a
// response body. Non-JSON bodies yield "".
func serverMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := rawString(payload.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(payload.Message)
}

// rawString accepts both "error": "text" and "error": {"message": "text"}.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

func newStatusError(op string, status int, body []byte) *APIError {
	msg := serverMessage(body)
	if msg == "" {
		msg = FallbackMessage
	}
	return &APIError{Op: op, Status: status, Message: msg}
}

func newTransportError(op string, err error) *APIError {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = FallbackMessage
	}
	return &APIError{Op: op, Message: msg, Err: err}
}
