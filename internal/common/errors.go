// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Ingestion errors.
	ErrUnsupportedFormat = errors.New("unsupported statement format")
	ErrEmptyResult       = errors.New("no trips could be extracted from the statement")

	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UnsupportedFormatError reports a statement whose extension is not one of
// the supported kinds. It matches ErrUnsupportedFormat with errors.Is.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return ErrUnsupportedFormat.Error() + ": file has no extension"
	}
	return fmt.Sprintf("%s: %q", ErrUnsupportedFormat, e.Extension)
}

// Is makes errors.Is(err, ErrUnsupportedFormat) succeed.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// AsUserError turns the two blocking pipeline failures into messages fit
// for an end user. Any other error is returned unchanged.
func AsUserError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnsupportedFormat):
		return NewUserError("Only .csv, .xlsx, .pdf and .txt statements can be analyzed", err)
	case errors.Is(err, ErrEmptyResult):
		return NewUserError("The statement was read but contained no toll crossings", err)
	default:
		return err
	}
}
