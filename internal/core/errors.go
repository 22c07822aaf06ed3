package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidSession     = errors.New("invalid session")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage failure")
	ErrValidation         = errors.New("validation failed")
)

// Field validation errors. All of them match ErrValidation.
var (
	ErrInvalidDate        = fmt.Errorf("%w: invalid date, expected YYYY-MM-DD", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyDescription   = fmt.Errorf("%w: empty description", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, MaxDescriptionLength)
	ErrEmptyCategory      = fmt.Errorf("%w: empty category", ErrValidation)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrInvalidPassword    = fmt.Errorf("%w: password must be between 1 and %d bytes", ErrValidation, MaxPasswordBytes)
)

// StorageError wraps a failure of the persistent store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// WrapStorage returns nil for a nil err, domain sentinels unchanged,
// and anything else as a *StorageError.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
