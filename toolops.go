package senseboard

import (
	"fmt"
	"time"
)

// Unavailable is returned by BoardOps query methods when the mailbox had
// nothing to offer within the query timeout.
const Unavailable = "unavailable"

// BoardOps adapts a Session to the string-in/string-out surface consumed
// by tool front ends. Each method is a thin call into the session; no
// state lives here beyond the query timeout.
type BoardOps struct {
	session      *Session
	queryTimeout time.Duration
}

// NewBoardOps wraps a session with the default query timeout.
func NewBoardOps(s *Session) *BoardOps {
	return &BoardOps{session: s, queryTimeout: DefaultQueryTimeout}
}

// NewBoardOpsWithTimeout wraps a session with an explicit query timeout.
func NewBoardOpsWithTimeout(s *Session, timeout time.Duration) *BoardOps {
	return &BoardOps{session: s, queryTimeout: timeout}
}

// IndicatorOn turns the built-in LED on.
func (o *BoardOps) IndicatorOn() error { return o.session.LEDOn() }

// IndicatorOff turns the built-in LED off.
func (o *BoardOps) IndicatorOff() error { return o.session.LEDOff() }

// SetTriColor sets the RGB indicator; components are clamped into [0,255].
func (o *BoardOps) SetTriColor(r, g, b int) error { return o.session.SetRGB(r, g, b) }

// LatestTemperature formats the most recent HS3003 temperature.
func (o *BoardOps) LatestTemperature() string {
	pkt, ok := o.session.LatestPacket(o.queryTimeout)
	if !ok || pkt.HS3003TempC == nil {
		return Unavailable
	}
	return fmt.Sprintf("%.2f degrees celsius", *pkt.HS3003TempC)
}

// LatestGyro formats the most recent angular-rate vector in degrees/s.
func (o *BoardOps) LatestGyro() string {
	pkt, ok := o.session.LatestPacket(o.queryTimeout)
	if !ok || pkt.GyroDPS == nil {
		return Unavailable
	}
	return pkt.GyroDPS.String()
}

// LatestAccelerometer formats the most recent acceleration vector in g.
func (o *BoardOps) LatestAccelerometer() string {
	pkt, ok := o.session.LatestPacket(o.queryTimeout)
	if !ok || pkt.AccelG == nil {
		return Unavailable
	}
	return pkt.AccelG.String()
}
