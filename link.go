package senseboard

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	serial "go.bug.st/serial"
	"go.uber.org/atomic"
)

const (
	// readChunkSize is the per-Read buffer size. Telemetry lines are a
	// few hundred bytes at most.
	readChunkSize = 1024

	// maxLineSize caps line assembly; anything longer is garbage from a
	// desynchronized stream and gets dropped.
	maxLineSize = 16 * 1024
)

// Link owns one serial connection and exposes the line-level primitives the
// session is built on. ReadLine is intended for a single reader goroutine;
// WriteLine may be called concurrently and serializes writers so two
// commands are never interleaved on the wire.
type Link struct {
	handle portHandle
	log    zerolog.Logger

	// line assembly state, touched only by the reading goroutine
	readBuf []byte
	lineBuf []byte

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// openLink opens the configured port. Any failure here is fatal to session
// construction.
func openLink(cfg *Config) (*Link, error) {
	mode := &serial.Mode{BaudRate: cfg.BaudRate}
	h, err := openPort(cfg.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", cfg.PortName, err)
	}
	if err := h.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", cfg.PortName, err)
	}
	return newLink(h, *cfg.Logger), nil
}

// newLink wraps an already-open handle.
func newLink(h portHandle, log zerolog.Logger) *Link {
	return &Link{
		handle:  h,
		log:     log,
		readBuf: make([]byte, readChunkSize),
	}
}

// ReadLine blocks until a full newline-terminated line is available or the
// port's read timeout elapses. A timeout yields ("", nil) so the caller can
// re-check liveness and loop. Partial data is retained across calls.
// Undecodable bytes are replaced, never surfaced as errors.
func (l *Link) ReadLine() (string, error) {
	if l.closed.Load() {
		return "", ErrClosed
	}

	for {
		if line, ok := l.nextBufferedLine(); ok {
			return line, nil
		}

		n, err := l.handle.Read(l.readBuf)
		if err != nil {
			if l.closed.Load() {
				return "", ErrClosed
			}
			return "", err
		}
		if n == 0 {
			// read timeout
			return "", nil
		}

		l.lineBuf = append(l.lineBuf, l.readBuf[:n]...)
		if len(l.lineBuf) > maxLineSize {
			l.log.Debug().Int("len", len(l.lineBuf)).Msg("dropping oversized line fragment")
			l.lineBuf = l.lineBuf[:0]
		}
	}
}

// nextBufferedLine extracts the first complete line already assembled in
// lineBuf, if any.
func (l *Link) nextBufferedLine() (string, bool) {
	idx := -1
	for i, b := range l.lineBuf {
		if b == '\n' {
			idx = i
			break
		}
	}
	if idx == -1 {
		return "", false
	}

	raw := l.lineBuf[:idx]
	if len(raw) > 0 && raw[len(raw)-1] == '\r' {
		raw = raw[:len(raw)-1]
	}
	line := strings.ToValidUTF8(string(raw), "�")

	rest := l.lineBuf[idx+1:]
	l.lineBuf = append(l.lineBuf[:0], rest...)
	return line, true
}

// WriteLine writes text to the port, appending a newline terminator if
// absent. It returns once the write is submitted; no response is awaited.
func (l *Link) WriteLine(text string) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	data := []byte(text)

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	written := 0
	for written < len(data) {
		n, err := l.handle.Write(data[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		written += n
	}
	if written < len(data) {
		return ErrShortWrite
	}
	return nil
}

// Close releases the underlying connection. It is idempotent and suppresses
// close-time errors; a port already in an error state still ends up closed
// from the caller's point of view.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		if err := l.handle.Close(); err != nil {
			l.log.Debug().Err(err).Msg("closing serial port")
		}
	})
	return nil
}
