package senseboard

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, h *mockHandle, mutate ...func(*Config)) *Session {
	t.Helper()

	nop := zerolog.Nop()
	cfg := Config{
		PortName:    "mock",
		BaudRate:    115200,
		ReadTimeout: 20 * time.Millisecond,
		Logger:      &nop,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	_ = h.SetReadTimeout(cfg.ReadTimeout)

	s := newSession(newLink(h, *cfg.Logger), cfg)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func TestSessionDecodesIntoLatestPacket(t *testing.T) {
	h := newMockHandle()
	s := newTestSession(t, h)

	h.readCh <- []byte(`{"hs3003_t_c": 21.5, "hs3003_h_rh": 40.2}` + "\n")

	pkt, ok := s.LatestPacket(time.Second)
	require.True(t, ok)
	require.Equal(t, 21.5, *pkt.HS3003TempC)
	require.Equal(t, 40.2, *pkt.HS3003Humidity)
	require.Nil(t, pkt.LPS22HBPressureKPa)
	require.Nil(t, pkt.AccelG)
}

func TestSessionLatestPacketNoData(t *testing.T) {
	h := newMockHandle()
	s := newTestSession(t, h)

	pkt, ok := s.LatestPacket(50 * time.Millisecond)
	require.False(t, ok)
	require.Nil(t, pkt)
}

func TestSessionOverwritesStaleReadings(t *testing.T) {
	h := newMockHandle()
	s := newTestSession(t, h)

	h.readCh <- []byte(`{"apds_prox": 1}` + "\n")
	h.readCh <- []byte(`{"apds_prox": 2}` + "\n")

	// wait for both lines to pass through the loop
	require.Eventually(t, func() bool {
		return s.MetricsSnapshot().PacketsDecoded == 2
	}, time.Second, 5*time.Millisecond)

	pkt, ok := s.LatestPacket(time.Second)
	require.True(t, ok)
	require.Equal(t, 2, *pkt.APDSProximity)
}

func TestSessionCommandStrings(t *testing.T) {
	h := newMockHandle()
	s := newTestSession(t, h)

	require.NoError(t, s.LEDOn())
	require.NoError(t, s.LEDOff())
	require.NoError(t, s.SetRGB(300, -5, 128)) // clamped
	require.NoError(t, s.IndicateRed())
	require.NoError(t, s.IndicateBlue())
	require.NoError(t, s.IndicateYellow())
	require.NoError(t, s.IndicatorOff())

	require.Equal(t, []string{
		"LED=ON\n",
		"LED=OFF\n",
		"RGB=255,0,128\n",
		"RGB=255,0,0\n",
		"RGB=0,0,255\n",
		"RGB=255,255,0\n",
		"RGB=0,0,0\n",
	}, h.writtenLines())

	require.Equal(t, int64(7), s.MetricsSnapshot().CommandsSent)
}

func TestSessionCommandWriteFailureIsReportedNotFatal(t *testing.T) {
	h := newMockHandle()
	s := newTestSession(t, h)

	h.setWriteErr(errors.New("EIO"))
	require.Error(t, s.LEDOn())
	require.Equal(t, StateRunning, s.State())

	// the loop is still alive and decoding
	h.setWriteErr(nil)
	h.readCh <- []byte(`{"apds_prox": 9}` + "\n")
	pkt, ok := s.LatestPacket(time.Second)
	require.True(t, ok)
	require.Equal(t, 9, *pkt.APDSProximity)

	require.Equal(t, int64(1), s.MetricsSnapshot().WriteErrors)
}

func TestSessionObserverCallback(t *testing.T) {
	h := newMockHandle()
	observed := make(chan *SensorPacket, 1)
	s := newTestSession(t, h, func(cfg *Config) {
		cfg.OnPacket = func(pkt *SensorPacket) { observed <- pkt }
	})
	require.Equal(t, StateRunning, s.State())

	h.readCh <- []byte(`{"lps22hb_t_c": 23.25}` + "\n")

	select {
	case pkt := <-observed:
		require.Equal(t, 23.25, *pkt.LPS22HBTempC)
	case <-time.After(time.Second):
		t.Fatal("observer was not invoked")
	}
}

func TestSessionDropsNonJSONLines(t *testing.T) {
	h := newMockHandle()
	s := newTestSession(t, h)

	h.readCh <- []byte("booting sensors...\n")
	h.readCh <- []byte("{not json}\n")
	h.readCh <- []byte(`{"apds_gesture": 2}` + "\n")

	pkt, ok := s.LatestPacket(time.Second)
	require.True(t, ok)
	require.Equal(t, 2, *pkt.APDSGesture)

	require.Eventually(t, func() bool {
		return s.MetricsSnapshot().PacketsDecoded == 1
	}, time.Second, 5*time.Millisecond)
	snap := s.MetricsSnapshot()
	require.Equal(t, int64(2), snap.DecodeDrops)
	require.Equal(t, int64(3), snap.LinesRead)
}

func TestSessionSurvivesTransientReadError(t *testing.T) {
	h := newMockHandle()
	h.setReadErr(errors.New("EAGAIN")) // consumed by the loop's first read
	s := newTestSession(t, h)

	h.readCh <- []byte(`{"apds_prox": 5}` + "\n")

	pkt, ok := s.LatestPacket(2 * time.Second)
	require.True(t, ok)
	require.Equal(t, 5, *pkt.APDSProximity)
	require.Equal(t, int64(1), s.MetricsSnapshot().ReadErrors)
}

func TestSessionShutdownWithinReadTimeout(t *testing.T) {
	h := newMockHandle()
	s := newTestSession(t, h)

	start := time.Now()
	require.NoError(t, s.Shutdown())
	elapsed := time.Since(start)

	require.Equal(t, StateStopped, s.State())
	// one 20ms read-timeout interval plus the grace delay, with headroom
	require.Less(t, elapsed, time.Second)

	// mailbox was never populated: queries return no-data, they don't hang
	pkt, ok := s.LatestPacket(20 * time.Millisecond)
	require.False(t, ok)
	require.Nil(t, pkt)
}

func TestSessionShutdownIdempotent(t *testing.T) {
	h := newMockHandle()
	s := newTestSession(t, h)

	require.NoError(t, s.Shutdown())
	require.NoError(t, s.Shutdown())
	require.Equal(t, 1, h.closeCalls)
	require.Equal(t, StateStopped, s.State())
}

func TestSessionCommandsFailAfterShutdown(t *testing.T) {
	h := newMockHandle()
	s := newTestSession(t, h)

	require.NoError(t, s.Shutdown())

	require.ErrorIs(t, s.LEDOn(), ErrSessionClosed)
	require.ErrorIs(t, s.SetRGB(1, 2, 3), ErrSessionClosed)
}

func TestOpenFailsOnBadConfig(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)

	_, err = Open(Config{PortName: "/dev/ttyACM0", BaudRate: 12345})
	require.Error(t, err)
}
