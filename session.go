package senseboard

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// State is the session lifecycle state.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const (
	// shutdownGrace lets a final timed read settle before the port is
	// pulled out from under the loop.
	shutdownGrace = 100 * time.Millisecond

	// readErrorBackoff throttles the loop when the port keeps failing,
	// so a dead-but-open connection does not spin a core.
	readErrorBackoff = 100 * time.Millisecond
)

// Session owns the serial link, the mailbox and the background reading
// loop. Construct one with Open; all methods are safe for concurrent use.
type Session struct {
	link    *Link
	mailbox *Mailbox
	metrics *Metrics
	log     zerolog.Logger

	onPacket     func(*SensorPacket)
	debugNonJSON bool
	readTimeout  time.Duration

	state    *atomic.Int32
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// Open opens the configured serial port and starts the reading loop. A
// failure to open the port is the only error that surfaces here; once Open
// returns, read and decode problems are handled inside the loop.
func Open(cfg Config) (*Session, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	link, err := openLink(&cfg)
	if err != nil {
		return nil, err
	}
	return newSession(link, cfg), nil
}

// newSession wires a session around an already-open link and launches the
// loop.
func newSession(link *Link, cfg Config) *Session {
	s := &Session{
		link:         link,
		mailbox:      NewMailbox(),
		metrics:      &Metrics{},
		log:          *cfg.Logger,
		onPacket:     cfg.OnPacket,
		debugNonJSON: cfg.DebugNonJSON,
		readTimeout:  cfg.ReadTimeout,
		state:        atomic.NewInt32(int32(StateStarting)),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	s.state.Store(int32(StateRunning))
	go s.readLoop()
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// readLoop runs until Shutdown. The bounded read timeout is the only
// suspension point, which is what makes a shutdown request observable
// within one timeout interval. Decode failures and transient I/O errors
// never terminate the loop.
func (s *Session) readLoop() {
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		line, err := s.link.ReadLine()
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			s.metrics.ReadErrors.Add(1)
			s.log.Warn().Err(err).Msg("serial read failed")
			select {
			case <-s.stopCh:
				return
			case <-time.After(readErrorBackoff):
			}
			continue
		}
		if line == "" {
			// read timeout; loop around and re-check the stop flag
			continue
		}

		s.metrics.LinesRead.Add(1)
		pkt, ok := ParsePacket(line)
		if !ok {
			s.metrics.DecodeDrops.Add(1)
			if s.debugNonJSON {
				s.log.Debug().Str("line", line).Msg("dropped non-JSON line")
			}
			continue
		}

		if s.onPacket != nil {
			s.onPacket(pkt)
		}
		s.mailbox.Publish(pkt)
		s.metrics.PacketsDecoded.Add(1)
	}
}

// send serializes one command line onto the wire. A failed write is
// reported to the caller but does not affect the session.
func (s *Session) send(cmd string) error {
	if s.State() != StateRunning {
		return ErrSessionClosed
	}
	if err := s.link.WriteLine(cmd); err != nil {
		s.metrics.WriteErrors.Add(1)
		s.log.Warn().Err(err).Str("command", cmd).Msg("command write failed")
		return err
	}
	s.metrics.CommandsSent.Add(1)
	return nil
}

// LEDOn turns on the board's built-in LED.
func (s *Session) LEDOn() error { return s.send("LED=ON") }

// LEDOff turns off the board's built-in LED.
func (s *Session) LEDOff() error { return s.send("LED=OFF") }

// SetRGB sets the tri-color indicator. Components are silently clamped
// into [0,255]; out-of-range values are not an error.
func (s *Session) SetRGB(r, g, b int) error {
	return s.send(fmt.Sprintf("RGB=%d,%d,%d", clampByte(r), clampByte(g), clampByte(b)))
}

// Convenience presets built from the tri-color primitive.

func (s *Session) IndicateRed() error    { return s.SetRGB(255, 0, 0) }
func (s *Session) IndicateBlue() error   { return s.SetRGB(0, 0, 255) }
func (s *Session) IndicateYellow() error { return s.SetRGB(255, 255, 0) }
func (s *Session) IndicatorOff() error   { return s.SetRGB(0, 0, 0) }

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// LatestPacket consumes the most recent packet from the mailbox, waiting
// up to timeout for one to arrive. It reports false when nothing was
// published in time — a normal outcome while the device warms up, not a
// failure. Pass a zero timeout for a non-blocking poll.
func (s *Session) LatestPacket(timeout time.Duration) (*SensorPacket, bool) {
	pkt, ok := s.mailbox.Take(timeout)
	if ok {
		s.metrics.QueryHits.Add(1)
	} else {
		s.metrics.QueryTimeouts.Add(1)
	}
	return pkt, ok
}

// MetricsSnapshot returns current loop and command counters.
func (s *Session) MetricsSnapshot() Snapshot {
	return s.metrics.Snapshot()
}

// Shutdown stops the reading loop and closes the port. It is idempotent
// and safe to call even if the loop never observed a single packet. The
// loop exits within one read-timeout interval; the port is closed only
// after the last read has settled.
func (s *Session) Shutdown() error {
	s.stopOnce.Do(func() {
		s.state.Store(int32(StateStopping))
		close(s.stopCh)

		select {
		case <-s.doneCh:
		case <-time.After(s.readTimeout + shutdownGrace):
			// Loop is stuck past its read timeout (or never ran);
			// give the in-flight read a moment, then pull the port.
			time.Sleep(shutdownGrace)
		}

		_ = s.link.Close()
		s.state.Store(int32(StateStopped))
	})
	return nil
}
