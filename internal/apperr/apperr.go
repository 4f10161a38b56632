// Package apperr defines the error kinds shared by services, handlers and the client.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAccessDenied
	KindNotFound
	KindNetwork
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAccessDenied:
		return "access_denied"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Unauthenticated means the caller's identity could not be established.
func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func AccessDenied(msg string) error {
	return &Error{Kind: KindAccessDenied, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Network wraps a transport failure seen by the client.
func Network(err error) error {
	return &Error{Kind: KindNetwork, Message: "network error", Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
