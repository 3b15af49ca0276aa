package client

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrBodySize caps the amount of response body echoed back in
// an error string. The full body is still available on the Envelope.
const maxErrBodySize = 4 << 10 // 4KB

const contentTypeJSON = "application/json"

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [ResponseError]
	// when the server responds outside the 2xx range.
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrDecodeBody is wrapped by [ResponseError] when the response body
	// is not valid JSON.
	ErrDecodeBody = errors.New("decoding body")
)

// ResponseError is returned when a response was received but the call
// failed, either on status or on decoding. The Envelope always carries
// the status and a non-empty Message.
type ResponseError struct {
	Envelope *Envelope
	Err      error
}

func (e *ResponseError) Error() string {
	body := string(e.Envelope.Raw)
	if len(body) > maxErrBodySize {
		body = body[:maxErrBodySize]
	}

	return fmt.Sprintf("%v: %d, message: %s, body: %s", e.Err, e.Envelope.Status, e.Envelope.Message, body)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// AsResponseError retrieves the *ResponseError from err's chain, if any.
func AsResponseError(err error) (*ResponseError, bool) {
	return errors.AsType[*ResponseError](err)
}

// statusErr picks the sentinel chain for a failed status.
func statusErr(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrAuthFailure, ErrUnexpectedStatusCode)
	default:
		return ErrUnexpectedStatusCode
	}
}
