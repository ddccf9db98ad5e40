package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError carrying the same code, so that
// errors.Is(err, errors.SlotNoLongerAvailable(...)) style checks work.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrInternal
	ErrInvalidInterval
	ErrNoEligibleWorker
	ErrSlotNoLongerAvailable
	ErrStoreUnavailable
	ErrInvalidTransition
	ErrVersionConflict
	ErrOverlappingSlots
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrBadRequest:
		return "bad_request"
	case ErrInternal:
		return "internal"
	case ErrInvalidInterval:
		return "invalid_interval"
	case ErrNoEligibleWorker:
		return "no_eligible_worker"
	case ErrSlotNoLongerAvailable:
		return "slot_no_longer_available"
	case ErrStoreUnavailable:
		return "store_unavailable"
	case ErrInvalidTransition:
		return "invalid_transition"
	case ErrVersionConflict:
		return "version_conflict"
	case ErrOverlappingSlots:
		return "overlapping_slots"
	}
	return fmt.Sprintf("code_%d", int(c))
}

// Code returns a bare sentinel for code, usable as an errors.Is target.
func Code(code ErrorCode) *AppError {
	return &AppError{Code: code}
}

// CodeOf extracts the code of the first AppError in err's chain, or
// ErrInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, Code(code))
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func InvalidInterval(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrInvalidInterval,
		Message: "invalid interval: " + fmt.Sprintf(format, args...),
	}
}

func NoEligibleWorker(serviceID fmt.Stringer) *AppError {
	return &AppError{
		Code:    ErrNoEligibleWorker,
		Message: fmt.Sprintf("no eligible worker for service %s", serviceID),
	}
}

func SlotNoLongerAvailable(workerID fmt.Stringer) *AppError {
	return &AppError{
		Code:    ErrSlotNoLongerAvailable,
		Message: fmt.Sprintf("slot no longer available for worker %s", workerID),
	}
}

// StoreUnavailable wraps a persistence failure. It is never to be read as
// "no conflict" or "no rows".
func StoreUnavailable(op string, err error) *AppError {
	return &AppError{
		Code:    ErrStoreUnavailable,
		Message: fmt.Sprintf("store unavailable during %s", op),
		Err:     err,
	}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("cannot transition booking from %s to %s", from, to),
	}
}

// OverlappingSlots rejects a weekly schedule in which two active windows on
// the same day share minutes.
func OverlappingSlots(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrOverlappingSlots,
		Message: "overlapping availability slots: " + fmt.Sprintf(format, args...),
	}
}

func VersionConflict(resource string, id fmt.Stringer) *AppError {
	return &AppError{
		Code:    ErrVersionConflict,
		Message: fmt.Sprintf("%s %s was modified concurrently", resource, id),
	}
}
