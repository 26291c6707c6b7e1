// Package apperror defines the application's error taxonomy.
//
// Services return these typed errors; the HTTP layer translates them to
// status codes with errors.Is/errors.As. The service layer itself never
// touches HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNoFields           = errors.New("no fields to update")
	ErrStorage            = errors.New("storage unavailable")
)

type AppError struct {
	Err     error  // sentinel from the list above
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// AlreadyExists reports an identity conflict on username or email.
// Both the optimistic pre-check and a repository unique-constraint violation
// produce this same error, so a lost race surfaces identically to a
// detected duplicate.
func AlreadyExists(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// InvalidCredentials is returned for both "unknown email" and "wrong
// password". The message is identical in both cases so callers cannot
// probe which accounts exist.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid credentials",
	}
}

func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

func NoFieldsToUpdate() *AppError {
	return &AppError{
		Err:     ErrNoFields,
		Message: "at least one field must be provided",
	}
}

// StorageUnavailable wraps a collaborator I/O failure (asset store or
// repository) without leaking its internal detail into the message.
func StorageUnavailable(op string) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: fmt.Sprintf("%s is temporarily unavailable", op),
	}
}
