package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Domain packages wrap one of these with %w so the API layer
// can translate any error to a status code with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("authentication failed")
	ErrStorage    = errors.New("storage error")
)

// New returns a sentinel of the given kind carrying its own message.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Storage marks a driver error as a storage failure. The engine message is
// kept as the error text.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return &kindError{kind: ErrStorage, msg: err.Error(), cause: err}
}

// Validationf builds a validation error from a format string.
func Validationf(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}
