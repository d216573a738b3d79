// Package chaterr defines the typed error taxonomy shared by the consensus
// module, the chat state machine, and the RPC façade.
package chaterr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so transport layers can translate it to the
// appropriate wire-level status without string-matching messages.
type Kind int

const (
	KindInternal Kind = iota
	KindNotLeader
	KindUnavailable
	KindInvalidArgument
	KindAlreadyExists
	KindNotFound
	KindUnauthenticated
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotLeader:
		return "not_leader"
	case KindUnavailable:
		return "unavailable"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error is a typed, wrappable error carrying a Kind for façade translation.
type Error struct {
	Kind    Kind
	Message string
	// LeaderHint carries the last known leader node ID, populated only for
	// KindNotLeader so a redirect can be handed back to the caller.
	LeaderHint string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotLeader(leaderHint string) *Error {
	return &Error{Kind: KindNotLeader, Message: "this node is not the leader", LeaderHint: leaderHint}
}

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func AlreadyExists(message string) *Error { return New(KindAlreadyExists, message) }
func InvalidArgument(message string) *Error { return New(KindInvalidArgument, message) }
func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }
func Timeout(message string) *Error       { return New(KindTimeout, message) }
func Unavailable(message string) *Error   { return New(KindUnavailable, message) }
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// As is a thin wrapper around errors.As for call sites that want the Kind
// without importing the stdlib errors package directly.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// KindOf extracts the Kind of err, defaulting to KindInternal if err is not
// (or does not wrap) a *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
