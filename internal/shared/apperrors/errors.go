package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind names an error class in API responses.
type Kind string

const (
	KindInvalidArgument      Kind = "INVALID_ARGUMENT"
	KindNotFound             Kind = "NOT_FOUND"
	KindForbidden            Kind = "FORBIDDEN"
	KindAlreadyBooked        Kind = "ALREADY_BOOKED"
	KindAlreadyCancelled     Kind = "ALREADY_CANCELLED"
	KindInsufficientCapacity Kind = "INSUFFICIENT_CAPACITY"
	KindTransientFailure     Kind = "TRANSIENT_FAILURE"
	KindConsistency          Kind = "CONSISTENCY_ERROR"
	KindInternal             Kind = "INTERNAL"
)

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrAlreadyBooked        = errors.New("user already holds a confirmed booking for this event")
	ErrAlreadyCancelled     = errors.New("booking is already cancelled")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrTransientFailure     = errors.New("temporary data store failure, retry the request")

	// ErrConsistency reports stored state that violates a capacity invariant.
	ErrConsistency = errors.New("capacity state is inconsistent")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
	{ErrAlreadyBooked, KindAlreadyBooked},
	{ErrAlreadyCancelled, KindAlreadyCancelled},
	{ErrInsufficientCapacity, KindInsufficientCapacity},
	{ErrTransientFailure, KindTransientFailure},
	{ErrConsistency, KindConsistency},
}

// KindOf returns the kind of the first known sentinel found in err's chain.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsDomain reports whether err carries one of the booking error kinds other
// than a transient failure.
func IsDomain(err error) bool {
	switch KindOf(err) {
	case KindInternal, KindTransientFailure:
		return false
	}
	return true
}

// Transient wraps an infrastructure error so callers see ErrTransientFailure
// while the original cause stays in the chain.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransientFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientFailure, err)
}

// Classify keeps domain errors as they are and turns everything else,
// including context deadlines, into a transient failure.
func Classify(err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrTransientFailure, err)
	}
	return Transient(err)
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindAlreadyBooked, KindAlreadyCancelled, KindInsufficientCapacity:
		return http.StatusConflict
	case KindTransientFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
