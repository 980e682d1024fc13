package inventory

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks at the transport boundary.
var (
	ErrStorage      = errors.New("inventory storage failure")
	ErrDuplicateID  = errors.New("inventory id already exists")
	ErrNotFound     = errors.New("inventory record not found")
	ErrImportFormat = errors.New("unsupported import file")
	ErrInvalidID    = errors.New("inventory id not allowed")
)

// StorageError means the backing medium could not be read or written, or
// held malformed data. It fails the current operation only.
type StorageError struct {
	Op  string // load or save
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("inventory %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// DuplicateIDError is returned by Create when the id is already taken.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("inventory id %q already exists", e.ID)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }

// NotFoundError is returned when no record has the given id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("inventory record %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidIDError is returned by Create for an id the API cannot address.
type InvalidIDError struct {
	ID     string
	Reason string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("inventory id %q %s", e.ID, e.Reason)
}

func (e *InvalidIDError) Is(target error) bool { return target == ErrInvalidID }

// ImportFormatError describes why an upload could not be parsed. Reason is
// safe to show to the user.
type ImportFormatError struct {
	Reason string
	Err    error
}

func (e *ImportFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import: %s: %v", e.Reason, e.Err)
	}
	return "import: " + e.Reason
}

func (e *ImportFormatError) Unwrap() error { return e.Err }

func (e *ImportFormatError) Is(target error) bool { return target == ErrImportFormat }

func formatError(reason string, err error) error {
	return &ImportFormatError{Reason: reason, Err: err}
}
