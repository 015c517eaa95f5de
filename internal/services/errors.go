package services

import (
	"errors"
	"sort"
	"strings"
)

// Error variables
var (
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication is returned for bad credentials and unknown or revoked tokens.
	ErrAuthentication = errors.New("unable to log in with provided credentials")
	// ErrForbidden is returned when the caller may not modify a resource.
	ErrForbidden = errors.New("you do not have permission to perform this action")
	// ErrNotFound is returned for missing or invisible resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when registering a username that is already active.
	ErrConflict = errors.New("a user with that username already exists and is active")
	// ErrStorage is wrapped by every StorageError.
	ErrStorage = errors.New("image storage failed")
)

// ValidationError lists invalid fields with a message each and required fields that were absent.
type ValidationError struct {
	Fields  map[string]string
	Missing []string
}

// Add records a problem with field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Require records field as missing.
func (e *ValidationError) Require(field string) {
	e.Missing = append(e.Missing, field)
}

// Empty reports whether nothing was recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0 && len(e.Missing) == 0
}

// OrNil returns e when it holds problems and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
	}
	if len(parts) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError wraps a failure of the image storage backend.
type StorageError struct {
	Op  string // save or delete
	Err error
}

func (e *StorageError) Error() string {
	return "image storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorage) hold for every StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
