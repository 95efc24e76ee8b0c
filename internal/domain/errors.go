package domain

import "errors"

var (
	// ErrAttemptNotFound is returned when the referenced attempt document does not exist.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrTestNotFound indicates the test definition could not be loaded.
	ErrTestNotFound = errors.New("test not found")
	// ErrDocNotFound is the document store's miss sentinel.
	ErrDocNotFound = errors.New("document not found")
	// ErrReferenceNotFound indicates an unknown reference-data key.
	ErrReferenceNotFound = errors.New("reference data not found")
	// ErrInvalidPIN is returned when the reviewer PIN does not match; no read or write happens after it.
	ErrInvalidPIN = errors.New("invalid reviewer pin")
	// ErrConflict is returned when a document transaction keeps losing to concurrent writers.
	ErrConflict = errors.New("document modified concurrently")
)
