package services

import (
	"fmt"

	"example.com/connectsphere/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Kind classifies a service failure for the transport layer
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error is returned by every service operation that fails for a reason the
// caller can act on. Message is safe to show to end users.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds a KindNotFound error
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Unauthorized builds a KindUnauthorized error
func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden builds a KindForbidden error
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Conflict builds a KindConflict error
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Invalid builds a KindValidation error
func Invalid(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf reports the kind of err; anything that is not an *Error is internal
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "Internal server error"
}

// notFoundOr maps repositories.ErrNotFound to a NotFound error with msg and
// wraps anything else
func notFoundOr(err error, msg, wrap string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound(msg)
	}
	return errors.Wrap(err, wrap)
}

var validate = validator.New()

// validateInput runs struct tag validation and reports the first failing field
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("Invalid %s: failed %s validation", fe.Field(), fe.Tag()),
			Err:     err,
		}
	}
	return &Error{Kind: KindValidation, Message: "Invalid input", Err: err}
}
