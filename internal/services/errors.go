package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Every error returned by this package that is not an
// infrastructure failure unwraps to exactly one of them.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrBusinessRule = errors.New("business rule violation")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error is a domain error with a client-facing message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrInsufficientStock  = &Error{Kind: ErrBusinessRule, Msg: "insufficient stock"}
	ErrEmptyCart          = &Error{Kind: ErrBusinessRule, Msg: "cart is empty"}
	ErrDuplicateReview    = &Error{Kind: ErrBusinessRule, Msg: "you have already reviewed this product for this order"}
	ErrDuplicateDiscount  = &Error{Kind: ErrBusinessRule, Msg: "product already has an active discount"}
	ErrExpiredDiscount    = &Error{Kind: ErrBusinessRule, Msg: "cannot activate a discount whose end date has passed"}
	ErrEmailTaken         = &Error{Kind: ErrBusinessRule, Msg: "email is already registered"}
	ErrInvalidCredentials = &Error{Kind: ErrUnauthorized, Msg: "invalid email or password"}
)

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return &Error{Kind: ErrNotFound, Msg: what + " not found"}
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}

// withDetail keeps the identity of a specific error while adding context
// to its message.
func withDetail(err *Error, detail string) error {
	return fmt.Errorf("%w: %s", err, detail)
}

// lookup converts gorm.ErrRecordNotFound into a NotFound error for what.
func lookup(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return err
}
