// Package apperr defines the error categories shared by the catalog, cart and
// ledger packages. Package-specific errors wrap one of these so callers can
// branch with errors.Is without knowing where the error came from.
package apperr

import "errors"

var (
	// ErrInvalidArgument is returned for input rejected before any I/O.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorageUnavailable is returned when the store cannot serve a read or
	// a single-row mutation.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrWriteFailed is returned when an atomic multi-row write was rolled back.
	ErrWriteFailed = errors.New("write failed")
)
