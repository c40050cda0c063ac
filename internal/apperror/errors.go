package apperror

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindReferentialIntegrity
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindReferentialIntegrity:
		return "referential_integrity"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error is a domain error safe to show to API callers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Available is set on INSUFFICIENT_QUANTITY: units still refundable on the line.
	Available *int
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code so wrapped or re-messaged errors still compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy with a more specific message.
func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "resource not found"}
	ErrEmptyHistory       = &Error{Kind: KindNotFound, Code: "EMPTY_HISTORY", Message: "no bills yet"}
	ErrEmptyBill          = &Error{Kind: KindValidation, Code: "EMPTY_BILL", Message: "no valid items in bill"}
	ErrInvalidPrice       = &Error{Kind: KindValidation, Code: "INVALID_PRICE", Message: "price must be 0 or greater"}
	ErrInvalidInput       = &Error{Kind: KindValidation, Code: "INVALID_INPUT", Message: "invalid input"}
	ErrInvalidQuantity    = &Error{Kind: KindValidation, Code: "INVALID_QUANTITY", Message: "quantity must be > 0"}
	ErrInvalidStatus      = &Error{Kind: KindValidation, Code: "INVALID_STATUS", Message: "invalid status"}
	ErrInvalidDate        = &Error{Kind: KindValidation, Code: "INVALID_DATE", Message: "invalid date format"}
	ErrDuplicateCode      = &Error{Kind: KindConflict, Code: "DUPLICATE_CODE", Message: "product code already exists"}
	ErrDuplicateRequest   = &Error{Kind: KindConflict, Code: "DUPLICATE_REQUEST", Message: "request already processed"}
	ErrLineMismatch       = &Error{Kind: KindConflict, Code: "LINE_MISMATCH", Message: "bill line does not belong to this bill"}
	ErrInsufficientQty    = &Error{Kind: KindConflict, Code: "INSUFFICIENT_QUANTITY", Message: "not enough quantity left to refund"}
	ErrTransitionDenied   = &Error{Kind: KindConflict, Code: "TRANSITION_DENIED", Message: "status transition not allowed"}
	ErrItemInUse          = &Error{Kind: KindReferentialIntegrity, Code: "ITEM_IN_USE", Message: "cannot delete item used in past bills"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: "authentication required"}
	ErrForbidden          = &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: "admin only"}
)

// NotFound returns ErrNotFound naming the missing resource.
func NotFound(resource string) *Error {
	return ErrNotFound.WithMessage("%s not found", resource)
}

// InsufficientQuantity reports how many units are still refundable.
func InsufficientQuantity(requested, available int) *Error {
	e := ErrInsufficientQty.WithMessage("cannot refund %d, only %d available", requested, available)
	e.Available = &available
	return e
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
