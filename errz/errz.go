// Package errz defines the structured error kinds raised by the rivet
// compiler and bytecode emission.
package errz

import "fmt"

// Kind represents the category of an error.
type Kind int

const (
	// KindMalformedGraph indicates the source graph violates a structural
	// precondition (dangling link, missing pin). Fatal to the build.
	KindMalformedGraph Kind = iota

	// KindCycleDetected indicates a proposed link was rejected because it
	// would make the expression tree cyclic. Recoverable.
	KindCycleDetected

	// KindTooManyOperands indicates an Execute operation was asked to
	// encode more operands than the opcode range can express.
	KindTooManyOperands

	// KindInvalidTarget indicates a copy was asked to write into an
	// immutable (literal) memory region.
	KindInvalidTarget

	// KindInvalidDowncast indicates a kind-checked expression accessor was
	// invoked against the wrong kind. A defect in the caller, not a
	// recoverable runtime condition.
	KindInvalidDowncast
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindMalformedGraph:
		return "malformed graph"
	case KindCycleDetected:
		return "cycle detected"
	case KindTooManyOperands:
		return "too many operands"
	case KindInvalidTarget:
		return "invalid target"
	case KindInvalidDowncast:
		return "invalid downcast"
	default:
		return "error"
	}
}

// Error is a categorized error with an optional subject naming the graph
// node, pin, or expression the error relates to.
type Error struct {
	Kind    Kind
	Message string
	Subject string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause)
	}
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, msg, e.Subject)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSubject attaches a subject name to the error.
func (e *Error) WithSubject(subject string) *Error {
	e.Subject = subject
	return e
}

// WithCause wraps the error with a cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates a new Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
