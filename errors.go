package dynacrud

import (
	"errors"
	"fmt"
)

// Kind classifies the errors raised by the service itself. Backend errors are never
// converted to a Kind; they are returned exactly as the SDK produced them.
type Kind int

const (
	KindNotFound   Kind = iota + 1 // no record matched the requested key
	KindBadRequest                 // the caller supplied invalid input
	KindConflict                   // a record with the same attribute values already exists
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindBadRequest:
		return "bad request"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

var (
	// ErrNotFound matches any *Error of KindNotFound via errors.Is.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrBadRequest matches any *Error of KindBadRequest via errors.Is.
	ErrBadRequest = &Error{Kind: KindBadRequest}
	// ErrConflict matches any *Error of KindConflict via errors.Is.
	ErrConflict = &Error{Kind: KindConflict}
)

// Error is returned by service operations for failures detected locally.
type Error struct {
	Kind    Kind   // Error classification
	Op      string // Operation that raised the error, e.g. "GetByID"
	Message string // Human readable description
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

// Is reports whether target is an *Error with the same Kind. This allows the
// package sentinels to match errors carrying any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func notFound(op, table string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Op:      op,
		Message: fmt.Sprintf("%s with id %v not found", table, id),
	}
}

func badRequest(op, format string, args ...any) *Error {
	return &Error{
		Kind:    KindBadRequest,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

func conflict(op, table string, keys []string, values []any) *Error {
	msg := table + " already exists with "
	for i, key := range keys {
		if i > 0 {
			msg += ", "
		}
		msg += fmt.Sprintf("%s=%v", key, values[i])
	}
	return &Error{Kind: KindConflict, Op: op, Message: msg}
}

// IsNotFound reports whether err is, or wraps, a NotFound error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsBadRequest reports whether err is, or wraps, a BadRequest error.
func IsBadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }

// IsConflict reports whether err is, or wraps, a Conflict error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
