package solr

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the store layer and the components
// built on top of it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration is raised when a table definition or filter cannot be used.
	KindConfiguration
	// KindConnection is raised when the store handshake fails.
	KindConnection
	// KindWrite is raised when a flush, commit, rollback or drop is rejected.
	KindWrite
	// KindRead is raised when a count or page query fails.
	KindRead
)

// Sentinel errors, one per Kind. An *Error matches the sentinel of its kind
// with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConnection    = errors.New("connection error")
	ErrWrite         = errors.New("write failure")
	ErrRead          = errors.New("read failure")
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnection:
		return "connection"
	case KindWrite:
		return "write"
	case KindRead:
		return "read"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindConnection:
		return ErrConnection
	case KindWrite:
		return ErrWrite
	case KindRead:
		return ErrRead
	default:
		return nil
	}
}

// Error is a classified failure. Op names the operation that failed
// (for example "flush" or "count").
type Error struct {
	Kind       Kind
	Op         string
	Collection string
	Err        error
}

// NewError wraps err with a kind, an operation name and the collection it
// was issued against.
func NewError(kind Kind, op, collection string, err error) *Error {
	return &Error{Kind: kind, Op: op, Collection: collection, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, collection, format string, args ...any) *Error {
	return NewError(kind, op, collection, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel()
	prefix := "solr"
	if msg != nil {
		prefix = msg.Error()
	}
	if e.Op != "" {
		prefix += ": " + e.Op
	}
	if e.Collection != "" {
		prefix += " [" + e.Collection + "]"
	}
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// RemoteError is a request the store answered with a failure status.
type RemoteError struct {
	Status int    // HTTP status
	Code   int    // error.code reported by the store
	Msg    string // error.msg reported by the store
}

func (e *RemoteError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("remote error: status %d", e.Status)
	}
	return fmt.Sprintf("remote error: status %d: %s", e.Status, e.Msg)
}
