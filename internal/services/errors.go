package services

import (
	"errors"
	"fmt"

	"github.com/skytrip/travel-booking-backend/internal/database"
)

// ErrorKind classifies engine failures for the caller. Only
// KindAllocationExhausted and KindStoreUnavailable are retryable; every
// other kind means the request itself must change.
type ErrorKind string

const (
	KindInvalidSelection    ErrorKind = "invalid_selection"
	KindPassengerRequired   ErrorKind = "passenger_required"
	KindResourceUnavailable ErrorKind = "resource_unavailable"
	KindAmountMismatch      ErrorKind = "amount_mismatch"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidState        ErrorKind = "invalid_state"
	KindAllocationExhausted ErrorKind = "allocation_exhausted"
	KindStoreUnavailable    ErrorKind = "store_unavailable"
	KindUnauthorized        ErrorKind = "unauthorized"
)

// Error is a structured engine failure: a machine-readable kind plus a
// human message. Engine operations never panic across their boundary; every
// failure is one of these.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the caller may retry the same request.
func (e *Error) Retryable() bool {
	return e.Kind == KindAllocationExhausted || e.Kind == KindStoreUnavailable
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// isAllocationExhausted reports whether the failure chain bottoms out in
// the allocator's retry budget.
func isAllocationExhausted(err error) bool {
	return errors.Is(err, database.ErrAllocationExhausted)
}

// KindOf extracts the error kind, defaulting to store-unavailable for
// anything that is not a structured engine error (store and infrastructure
// failures reach the caller unclassified).
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreUnavailable
}
