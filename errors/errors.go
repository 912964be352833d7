package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")

	ErrInvalidPayload      = fmt.Errorf("recipient ID and message text are required")
	ErrMessageTooLong      = fmt.Errorf("message text is too long")
	ErrNotRegistered       = fmt.Errorf("user not registered")
	ErrSelfMessage         = fmt.Errorf("cannot send messages to yourself")
	ErrRateLimited         = fmt.Errorf("rate limit exceeded, please wait before sending more messages")
	ErrRegistryUnavailable = fmt.Errorf("shared registry unavailable")
	ErrPersistence         = fmt.Errorf("failed to persist message")
	ErrRegisterFailed      = fmt.Errorf("failed to register with server")
	ErrIdentityMismatch    = fmt.Errorf("registration identity does not match the session")
	ErrUnauthenticated     = fmt.Errorf("authentication required")
	ErrInvalidToken        = fmt.Errorf("invalid or expired token")
	ErrMessageNotFound     = fmt.Errorf("message not found")
	ErrForbidden           = fmt.Errorf("operation not allowed")
	ErrSinkFull            = fmt.Errorf("connection buffer is full")
	ErrSinkClosed          = fmt.Errorf("connection is closed")
)

// Wire codes carried by the "error" event.
const (
	CodeRateLimited    = "RATE_LIMITED"
	CodeMessageFailed  = "MESSAGE_FAILED"
	CodeRegisterFailed = "REGISTER_FAILED"
)

// Code maps a send-path error to its wire code. Only rate limiting is distinguishable.
func Code(err error) string {
	if stderrors.Is(err, ErrRateLimited) {
		return CodeRateLimited
	}
	return CodeMessageFailed
}

// ClientMessage returns the text a client may see for err, or fallback.
// Infrastructure details are never leaked.
func ClientMessage(err error, fallback string) string {
	for _, known := range []error{
		ErrInvalidPayload, ErrMessageTooLong, ErrNotRegistered, ErrSelfMessage,
		ErrRateLimited, ErrIdentityMismatch, ErrUnauthenticated,
	} {
		if stderrors.Is(err, known) {
			return known.Error()
		}
	}
	return fallback
}

// HTTPStatus maps domain errors to HTTP status codes.
func HTTPStatus(err error) int {
	switch {
	case stderrors.Is(err, ErrInvalidPayload), stderrors.Is(err, ErrSelfMessage):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrUnauthenticated), stderrors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case stderrors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
