// Package errors provides the error taxonomy shared by the catalog core.
package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUpload          = errors.New("media upload failed")
	ErrStorage         = errors.New("local storage failed")
	ErrNetwork         = errors.New("remote catalog request failed")
	ErrTimeout         = errors.New("operation timed out")
	ErrAuth            = errors.New("authentication failed")
	ErrProductNotFound = errors.New("product not found")
	ErrSessionRequired = errors.New("no authenticated session")
)

// ValidationKind is the class of the first failing draft field.
type ValidationKind string

const (
	MissingField ValidationKind = "missing_field"
	InvalidPrice ValidationKind = "invalid_price"
)

// ValidationError is detected before any I/O and is always recoverable by re-editing input.
type ValidationError struct {
	Field string
	Kind  ValidationKind
}

func (e *ValidationError) Error() string {
	if e.Kind == InvalidPrice {
		return fmt.Sprintf("%s must be a valid number greater than 0", e.Field)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UploadError reports a failed read of the local media handle or a rejected blob write.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool {
	return target == ErrUpload || (target == ErrTimeout && timedOut(e.Err))
}

// StorageError reports a local persistence failure.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage || (target == ErrTimeout && timedOut(e.Err))
}

// NetworkError reports a failed remote listing call. StatusCode is zero when no response arrived.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork || (target == ErrTimeout && timedOut(e.Err))
}

// AuthErrorKind classifies session gate failures.
type AuthErrorKind string

const (
	NotRegistered AuthErrorKind = "not_registered"
	WrongPassword AuthErrorKind = "wrong_password"
	AlreadyInUse  AuthErrorKind = "already_in_use"
	InvalidEmail  AuthErrorKind = "invalid_email"
	AuthUnknown   AuthErrorKind = "unknown"
)

// AuthError is returned by the session gate's sign-in and sign-up operations.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth %s", e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// AuthMessage is the user-facing text for an auth failure kind.
func AuthMessage(kind AuthErrorKind) string {
	switch kind {
	case NotRegistered:
		return "User not registered. Please register first."
	case WrongPassword:
		return "Incorrect password. Please try again."
	case AlreadyInUse:
		return "This email address is already in use."
	case InvalidEmail:
		return "Invalid email address. Please check and try again."
	default:
		return "An error occurred during authentication. Please try again later."
	}
}

func timedOut(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
