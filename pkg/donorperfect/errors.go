package donorperfect

import (
	"errors"
	"fmt"
)

// Sentinels for use with errors.Is.
var (
	ErrValidation      = errors.New("donorperfect: validation failed")
	ErrRequestTooLarge = errors.New("donorperfect: request too large")
	ErrTransport       = errors.New("donorperfect: transport failed")
	ErrRemote          = errors.New("donorperfect: remote error")
	ErrDecode          = errors.New("donorperfect: decode failed")
)

// ValidationError reports input that cannot be represented in the form the
// endpoint expects. Field is the parameter or config key at fault.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// RequestTooLargeError is returned before any network call when the assembled
// URL exceeds the endpoint's length cap.
type RequestTooLargeError struct {
	Length int
	Limit  int
}

func (e *RequestTooLargeError) Error() string {
	return fmt.Sprintf("request URL is %d characters, exceeds the maximum of %d", e.Length, e.Limit)
}

func (e *RequestTooLargeError) Is(target error) bool { return target == ErrRequestTooLarge }

// TransportError wraps a failure from the transport collaborator.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// RemoteError carries the failure text reported by the endpoint itself.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "donorperfect: " + e.Message }

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// DecodeError means the response did not have a shape the decoder understands.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "decode response: " + e.Reason }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func decodeErrorf(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}
