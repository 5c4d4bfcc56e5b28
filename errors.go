package senseboard

import "errors"

var (
	// ErrClosed is returned by link operations after Close.
	ErrClosed = errors.New("senseboard: link closed")

	// ErrSessionClosed is returned by commands once Shutdown has been
	// requested.
	ErrSessionClosed = errors.New("senseboard: session closed")

	// ErrShortWrite is returned when the port accepted fewer bytes than
	// the command contained.
	ErrShortWrite = errors.New("senseboard: short write")
)
