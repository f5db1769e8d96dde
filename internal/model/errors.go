package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoggedIn        = errors.New("not logged in (run: timeex login)")
	ErrSessionExpired     = errors.New("session expired, please log in again")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrTimerNotRunning    = errors.New("no active timer")
	ErrTimerRunning       = errors.New("timer already running")
	ErrArchiveNotSetUp    = errors.New("no archive directory set up (run: timeex archive setup <dir>)")
)

// ValidationError reports invalid user input. Operations that return it have
// not mutated any state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError is a shorthand for &ValidationError{...}.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageReadError means a persisted value could not be read or decoded.
// Callers normally recover by substituting an empty default.
type StorageReadError struct {
	Key string
	Err error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("storage error reading %s: %v", e.Key, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage error writing %s: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// FileOperationError is a failed report download or archive file write.
type FileOperationError struct {
	Path string
	Err  error
}

func (e *FileOperationError) Error() string {
	return fmt.Sprintf("file operation failed for %s: %v", e.Path, e.Err)
}

func (e *FileOperationError) Unwrap() error { return e.Err }

// PermissionDeniedError means the archive directory can no longer be written.
type PermissionDeniedError struct {
	Dir string
	Err error
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("archive permission denied for %s (run: timeex archive setup <dir> again): %v", e.Dir, e.Err)
}

func (e *PermissionDeniedError) Unwrap() error { return e.Err }
