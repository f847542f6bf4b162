package notify

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTransportAvailable means no candidate transport could be built.
	ErrNoTransportAvailable = errors.New("notify: no transport available")
	// ErrDeliveryFailed matches every *DeliveryFailedError.
	ErrDeliveryFailed = errors.New("notify: delivery failed")
)

// DeliveryFailedError reports a rejected or failed send.
type DeliveryFailedError struct {
	Transport Kind
	// Code is a machine-readable failure code when the transport has one
	// (SMTP stage codes, HTTP statuses, provider error codes).
	Code string
	// ResponseCode is the numeric SMTP/HTTP status, when known.
	ResponseCode int
	Cause        error
}

func (e *DeliveryFailedError) Error() string {
	msg := fmt.Sprintf("notify: delivery via %s failed", e.Transport)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DeliveryFailedError) Unwrap() []error {
	return []error{ErrDeliveryFailed, e.Cause}
}

// Details is the transport's own description of the failure.
func (e *DeliveryFailedError) Details() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

// sendError tags a transport failure with a machine-readable code.
type sendError struct {
	code         string
	responseCode int
	err          error
}

func (e *sendError) Error() string { return e.err.Error() }
func (e *sendError) Unwrap() error { return e.err }
func (e *sendError) Code() string  { return e.code }

func newSendError(code string, responseCode int, err error) error {
	return &sendError{code: code, responseCode: responseCode, err: err}
}

func newDeliveryFailed(kind Kind, err error) *DeliveryFailedError {
	failed := &DeliveryFailedError{Transport: kind, Cause: err}
	var se *sendError
	if errors.As(err, &se) {
		failed.Code = se.code
		failed.ResponseCode = se.responseCode
	}
	return failed
}
