package senseboard

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaudRate matches the board firmware's serial speed.
	DefaultBaudRate = 115200

	// DefaultReadTimeout bounds each blocking read. It doubles as the
	// interval at which the reading loop notices a shutdown request.
	DefaultReadTimeout = 1 * time.Second

	// DefaultQueryTimeout is how long LatestPacket waits when the caller
	// does not care to choose.
	DefaultQueryTimeout = 2 * time.Second
)

// Config describes how to open a device session.
type Config struct {
	// PortName is the serial device path, e.g. /dev/ttyACM0 on Linux or
	// COM3 on Windows. Required.
	PortName string

	// BaudRate defaults to 115200.
	BaudRate int

	// ReadTimeout is the per-read blocking bound. Defaults to one second.
	ReadTimeout time.Duration

	// OnPacket, if set, is invoked from the reading loop for every
	// successfully decoded packet, before it is published to the mailbox.
	// It must not block for long; the loop does not read while it runs.
	OnPacket func(*SensorPacket)

	// DebugNonJSON surfaces dropped unparseable lines to the logger at
	// debug level.
	DebugNonJSON bool

	// Logger receives loop diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

func (c *Config) applyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
}

// Validate checks the configuration for obvious issues. It is called by
// Open after defaults are applied.
func (c *Config) Validate() error {
	if c.PortName == "" {
		return fmt.Errorf("senseboard: missing port name")
	}
	if !isValidBaudRate(c.BaudRate) {
		return fmt.Errorf("senseboard: invalid baud rate %d, must be one of: %v", c.BaudRate, validBaudRates)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("senseboard: read timeout cannot be negative: %v", c.ReadTimeout)
	}
	return nil
}

func isValidBaudRate(rate int) bool {
	for _, v := range validBaudRates {
		if rate == v {
			return true
		}
	}
	return false
}
