package senseboard

import (
	"sync"
	"time"
)

// Mailbox is a single-slot concurrent container holding the most recent
// SensorPacket. Publish overwrites unconditionally and never blocks; Take
// consumes the slot, waiting up to a timeout for something to arrive.
//
// Semantics: repeated publishes before a take leave only the newest packet
// visible. A take empties the slot, so a second immediate take without an
// intervening publish times out. A publish racing a take is never lost:
// the taker either gets the packet or timed out strictly before the
// publish landed.
type Mailbox struct {
	mu  sync.Mutex
	pkt *SensorPacket

	// signal carries at most one wakeup token. Publish deposits it
	// non-blockingly; Take drains it and re-checks the slot, so a token
	// from an already-consumed publish only costs one spin.
	signal chan struct{}
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{signal: make(chan struct{}, 1)}
}

// Publish replaces the slot's contents, discarding any previous packet,
// and wakes at most one pending taker. It never blocks.
func (m *Mailbox) Publish(pkt *SensorPacket) {
	m.mu.Lock()
	m.pkt = pkt
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Take removes and returns the current packet, waiting up to timeout for
// one to be published. It reports false if the slot stayed empty for the
// whole timeout; that is a normal outcome, not an error.
func (m *Mailbox) Take(timeout time.Duration) (*SensorPacket, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		m.mu.Lock()
		if m.pkt != nil {
			pkt := m.pkt
			m.pkt = nil
			m.mu.Unlock()
			return pkt, true
		}
		m.mu.Unlock()

		select {
		case <-m.signal:
		case <-deadline.C:
			return nil, false
		}
	}
}
