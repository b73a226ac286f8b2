package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error that formats as the given text.
func New(msg string) error {
	return goErrors.New(msg)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goErrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goErrors.As(err, target)
}

// contextError wraps an error with a short description of what was being
// done when the error occurred. It's a plain struct so that errors created
// with the same context and cause compare as equal in tests.
type contextError struct {
	context string
	err     error
}

// WithContext adds context to the given error. The context should describe
// the operation that failed, e.g. "open config".
// If err is nil, WithContext returns nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause returns the error that was originally wrapped by WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// FriendlyError is an error whose message is meant to be shown to users
// directly, without any of the context that led up to it.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

type friendlyError struct {
	msg string
}

// NewFriendlyError creates a new error with a message that's displayed to
// the user as-is.
func NewFriendlyError(format string, args ...interface{}) error {
	return friendlyError{fmt.Sprintf(format, args...)}
}

func (err friendlyError) Error() string {
	return err.msg
}

func (err friendlyError) FriendlyMessage() string {
	return err.msg
}

// GetPrintableMessage returns the message that should be shown to the user
// for err. Friendly errors anywhere in the chain take precedence over the
// full error string.
func GetPrintableMessage(err error) string {
	var friendly FriendlyError
	if As(err, &friendly) {
		return friendly.FriendlyMessage()
	}
	return err.Error()
}
