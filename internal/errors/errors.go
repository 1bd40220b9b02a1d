package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP layer: validation and contention
// errors are normal request outcomes, gateway and internal errors are faults.
type Kind int

const (
	KindValidation Kind = iota
	KindContention
	KindNotFound
	KindGateway
	KindInternal
)

// Error is a reason-coded error. Code is a stable machine-readable
// identifier clients may branch on; Message is safe to show users.
type Error struct {
	Code    string
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches on the code, so wrapped copies of a sentinel compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy carrying the underlying error.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Kind: e.Kind, Message: e.Message, cause: cause}
}

var (
	ErrUnknownService = &Error{Code: "unknown_service", Kind: KindValidation, Message: "unknown service"}
	ErrInvalidWindow  = &Error{Code: "invalid_window", Kind: KindValidation, Message: "requested time window is not bookable"}
	ErrInvalidMethod  = &Error{Code: "invalid_method", Kind: KindValidation, Message: "unsupported payment method"}
	ErrInvalidAmount  = &Error{Code: "invalid_amount", Kind: KindValidation, Message: "amount is out of range"}

	ErrSlotConflict     = &Error{Code: "slot_conflict", Kind: KindContention, Message: "time slot is already booked"}
	ErrCapacityExceeded = &Error{Code: "capacity_exceeded", Kind: KindContention, Message: "event is full"}

	ErrBusinessNotFound    = &Error{Code: "business_not_found", Kind: KindNotFound, Message: "business not found"}
	ErrEventNotFound       = &Error{Code: "event_not_found", Kind: KindNotFound, Message: "event not found"}
	ErrReservationNotFound = &Error{Code: "reservation_not_found", Kind: KindNotFound, Message: "reservation not found"}
	ErrPaymentNotFound     = &Error{Code: "payment_not_found", Kind: KindNotFound, Message: "payment not found"}

	ErrGatewayUnavailable = &Error{Code: "gateway_unavailable", Kind: KindGateway, Message: "payment gateway unavailable, try again"}
	ErrCallbackRejected   = &Error{Code: "callback_rejected", Kind: KindValidation, Message: "callback signature verification failed"}

	ErrPaymentState = &Error{Code: "invalid_payment_state", Kind: KindValidation, Message: "payment is not in a state that allows this operation"}
)

// CodeOf extracts the reason code, falling back to internal_error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// KindOf extracts the kind, falling back to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf extracts the user-visible message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }
