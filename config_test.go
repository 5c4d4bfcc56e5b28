package senseboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{PortName: "/dev/ttyACM0"}
	cfg.applyDefaults()

	require.Equal(t, DefaultBaudRate, cfg.BaudRate)
	require.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
	require.NotNil(t, cfg.Logger)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid",
			cfg:     Config{PortName: "/dev/ttyACM0", BaudRate: 115200, ReadTimeout: time.Second},
			wantErr: false,
		},
		{
			name:    "missing port name",
			cfg:     Config{BaudRate: 115200},
			wantErr: true,
		},
		{
			name:    "nonstandard baud rate",
			cfg:     Config{PortName: "/dev/ttyACM0", BaudRate: 12345},
			wantErr: true,
		},
		{
			name:    "negative read timeout",
			cfg:     Config{PortName: "/dev/ttyACM0", BaudRate: 9600, ReadTimeout: -time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
