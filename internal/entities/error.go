package entities

import "errors"

// MissingInputAlert is shown to the user when the lookup form is incomplete.
const MissingInputAlert = "Please select a state and enter a procedure code"

var (
	ErrMissingInput      = errors.New("state and procedure code are required")
	ErrUnexpectedPayload = errors.New("unexpected response from rates service")
)

// UpstreamError carries the "error" field of a rates API payload.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}
