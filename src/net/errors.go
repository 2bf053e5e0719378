package net

import (
	"errors"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrFrameTooLarge is returned when a request or response exceeds the
	// maximum frame size. The connection is dropped.
	ErrFrameTooLarge = errors.New("frame too large")

	errNotAdvertisable = errors.New("local bind address is not advertisable")
	errNotTCP          = errors.New("local address is not a TCP address")
)

// ResponseError is returned by a Transport when the remote node received the
// request and replied with an error.
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string {
	return "remote error: " + e.Message
}

// IsResponseError reports whether err is, or wraps, a *ResponseError
func IsResponseError(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr)
}
