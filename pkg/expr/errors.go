package expr

import "errors"

var (
	// ErrSyntax is returned for source that does not parse
	ErrSyntax = errors.New("syntax error")
	// ErrReference is returned for identifiers missing from the context
	ErrReference = errors.New("undefined identifier")
	// ErrType is returned when an operation does not apply to its operands
	ErrType = errors.New("type error")
	// ErrNotCallable is returned when a non-callable value is called
	ErrNotCallable = errors.New("not callable")
	// ErrPanic wraps a panic raised by a Go callable
	ErrPanic = errors.New("callable panicked")
)
