package lang

import (
	"errors"
	"log/slog"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrRead     = NewError("failed to read input")
	ErrCanceled = NewError("execution canceled")
	ErrLimit    = NewError("iteration limit reached")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
// An error that already is (or wraps) an *Error is returned as-is.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. ""             // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel this error was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.msg == "" {
		return false
	}

	return t.msg == e.msg && t.err == nil
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// Exception kinds raised by guest programs.
var (
	ErrValue          = &Exception{Kind: "ValueError"}
	ErrType           = &Exception{Kind: "TypeError"}
	ErrIndex          = &Exception{Kind: "IndexError"}
	ErrKey            = &Exception{Kind: "KeyError"}
	ErrZeroDivision   = &Exception{Kind: "ZeroDivisionError"}
	ErrRecursion      = &Exception{Kind: "RecursionError"}
	ErrOverflow       = &Exception{Kind: "OverflowError"}
	ErrNotImplemented = &Exception{Kind: "NotImplementedError"}
)

// Exception is a runtime failure raised while executing a guest program.
// It halts the remainder of the run and is reported to the caller as a
// single message.
type Exception struct {
	Kind string
	Msg  string
	Line int // 1-based source line of the failing statement, 0 if unknown
}

// Error renders the exception as "Kind: message".
func (e *Exception) Error() string {
	if e.Msg == "" {
		return e.Kind
	}

	return e.Kind + ": " + e.Msg
}

// Is matches a message-less sentinel of the same kind, so that
// errors.Is(err, ErrValue) holds for every ValueError.
func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)

	return ok && t.Msg == "" && t.Kind == e.Kind
}

// LogValue implements slog.LogValuer.
func (e *Exception) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", e.Kind),
		slog.String("message", e.Msg),
	}

	if e.Line > 0 {
		attrs = append(attrs, slog.Int("line", e.Line))
	}

	return slog.GroupValue(attrs...)
}

// raise creates a new exception of the given kind.
func (e *Exception) raise(msg string) *Exception {
	return &Exception{Kind: e.Kind, Msg: msg}
}

// atLine records the source line on err if it is an exception that has not
// been located yet.
func atLine(err error, line int) error {
	var ex *Exception
	if errors.As(err, &ex) && ex.Line == 0 {
		ex.Line = line
	}

	return err
}
