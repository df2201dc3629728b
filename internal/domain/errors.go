package domain

import "fmt"

type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindInsufficientStock  ErrorKind = "INSUFFICIENT_STOCK"
	KindInvalidTransition  ErrorKind = "INVALID_TRANSITION"
	KindOrderNotFound      ErrorKind = "ORDER_NOT_FOUND"
	KindShiftNotFound      ErrorKind = "SHIFT_NOT_FOUND"
	KindShiftAlreadyClosed ErrorKind = "SHIFT_ALREADY_CLOSED"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindConflict           ErrorKind = "CONFLICT"
	KindForbidden          ErrorKind = "FORBIDDEN"
)

// Error is the structured failure surfaced by the ledger core. EntityID names
// the offending record (order, shift, product, input position) so callers can
// render a message without parsing text.
type Error struct {
	Kind     ErrorKind `json:"kind"`
	EntityID string    `json:"entity_id,omitempty"`
	Message  string    `json:"message"`
}

func (e *Error) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.EntityID, e.Message)
}

// Is matches on Kind so errors.Is(err, ErrInsufficientStock) holds for any
// entity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the caller may retry after changing its input or
// restocking.
func (e *Error) Retryable() bool {
	return e.Kind == KindInsufficientStock
}

func NewError(kind ErrorKind, entityID string, format string, args ...any) *Error {
	return &Error{Kind: kind, EntityID: entityID, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrOrderNotFound      = &Error{Kind: KindOrderNotFound, Message: "order not found"}
	ErrShiftNotFound      = &Error{Kind: KindShiftNotFound, Message: "shift not found"}
	ErrShiftAlreadyClosed = &Error{Kind: KindShiftAlreadyClosed, Message: "shift already closed"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflict"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "forbidden"}
)
