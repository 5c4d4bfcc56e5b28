package senseboard

import (
	"time"

	serial "go.bug.st/serial"
)

// portHandle abstracts the subset of go.bug.st/serial.Port used by this
// package.
type portHandle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(d time.Duration) error
}

// allow tests to substitute the physical port
var openPort = func(name string, mode *serial.Mode) (portHandle, error) {
	return serial.Open(name, mode)
}
