package actions

import (
	"errors"
	"fmt"

	"github.com/five82/matdeck/internal/asset"
	"github.com/five82/matdeck/internal/satapi"
)

// TransportMessage is shown when the service could not be reached at all.
const TransportMessage = "Request failed. Please confirm the backend service is running."

// ValidationError rejects an upload candidate before any network call.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// ItemError records one failed element of a batch.
type ItemError struct {
	ID  string
	Err error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

// UserMessage picks the text a person should see for err. Server messages are
// passed through verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if satapi.IsTransport(err) {
		return TransportMessage
	}
	var apiErr *satapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var decodeErr *asset.DecodeError
	if errors.As(err, &decodeErr) {
		return "Unexpected response from the service: " + decodeErr.Error()
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	return err.Error()
}
