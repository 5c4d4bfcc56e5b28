package senseboard

import "sync/atomic"

// Metrics tracks reading-loop and command health statistics. All counters
// are monotonic and safe to read while the loop is running.
type Metrics struct {
	// Reading loop
	LinesRead      atomic.Int64 // complete lines pulled off the wire
	PacketsDecoded atomic.Int64 // lines that decoded into a packet
	DecodeDrops    atomic.Int64 // non-JSON or malformed lines dropped
	ReadErrors     atomic.Int64 // transient read failures

	// Commands
	CommandsSent atomic.Int64 // successfully written command lines
	WriteErrors  atomic.Int64 // failed command writes

	// Queries
	QueryHits     atomic.Int64 // LatestPacket calls that returned a packet
	QueryTimeouts atomic.Int64 // LatestPacket calls that found nothing
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	LinesRead      int64
	PacketsDecoded int64
	DecodeDrops    int64
	ReadErrors     int64
	CommandsSent   int64
	WriteErrors    int64
	QueryHits      int64
	QueryTimeouts  int64
}

// Snapshot returns a consistent-enough copy for reporting; individual
// counters are read atomically.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		LinesRead:      m.LinesRead.Load(),
		PacketsDecoded: m.PacketsDecoded.Load(),
		DecodeDrops:    m.DecodeDrops.Load(),
		ReadErrors:     m.ReadErrors.Load(),
		CommandsSent:   m.CommandsSent.Load(),
		WriteErrors:    m.WriteErrors.Load(),
		QueryHits:      m.QueryHits.Load(),
		QueryTimeouts:  m.QueryTimeouts.Load(),
	}
}
