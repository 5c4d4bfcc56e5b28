package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/devaiot/senseboard"
)

func main() {
	device := flag.String("device", "/dev/ttyACM0", "serial device path")
	baud := flag.Int("baud", senseboard.DefaultBaudRate, "baud rate")
	readTimeout := flag.Duration("read-timeout", senseboard.DefaultReadTimeout, "per-read blocking bound")
	queryTimeout := flag.Duration("query-timeout", senseboard.DefaultQueryTimeout, "how long queries wait for a packet")
	debugNonJSON := flag.Bool("debug-nonjson", false, "log unparseable serial lines")
	logLevel := flag.String("log-level", "info", "log level (trace,debug,info,warn,error)")
	logFile := flag.String("log-file", "", "also log to this file (rotated)")
	listen := flag.Bool("listen", false, "listen-only mode: print decoded packets until interrupted")

	flag.Parse()

	logger := buildLogger(*logLevel, *logFile)

	cfg := senseboard.Config{
		PortName:     *device,
		BaudRate:     *baud,
		ReadTimeout:  *readTimeout,
		DebugNonJSON: *debugNonJSON,
		Logger:       &logger,
	}

	if *listen {
		runListen(cfg, logger)
		return
	}

	session, err := senseboard.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open session")
	}
	defer session.Shutdown()

	ops := senseboard.NewBoardOpsWithTimeout(session, *queryTimeout)
	runShell(session, ops, *queryTimeout)
}

func buildLogger(level, file string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	var w io.Writer = console
	if file != "" {
		w = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // MB
			MaxBackups: 3,
		})
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// runListen streams every decoded packet to stdout until interrupted.
func runListen(cfg senseboard.Config, logger zerolog.Logger) {
	cfg.OnPacket = func(pkt *senseboard.SensorPacket) {
		fmt.Println(formatPacket(pkt))
	}

	session, err := senseboard.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open session")
	}

	logger.Info().Str("device", cfg.PortName).Int("baud", cfg.BaudRate).Msg("listening, Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	_ = session.Shutdown()
}

func runShell(session *senseboard.Session, ops *senseboard.BoardOps, queryTimeout time.Duration) {
	shell := ishell.New()
	shell.Println("senseboard console. 'help' lists commands.")

	shell.AddCmd(&ishell.Cmd{
		Name: "led",
		Help: "led on|off",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: led on|off"))
				return
			}
			var err error
			switch strings.ToLower(c.Args[0]) {
			case "on":
				err = ops.IndicatorOn()
			case "off":
				err = ops.IndicatorOff()
			default:
				c.Err(fmt.Errorf("usage: led on|off"))
				return
			}
			if err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "rgb",
		Help: "rgb R G B (0-255 each, clamped)",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 3 {
				c.Err(fmt.Errorf("usage: rgb R G B"))
				return
			}
			comps := make([]int, 3)
			for i, arg := range c.Args {
				v, err := strconv.Atoi(arg)
				if err != nil {
					c.Err(fmt.Errorf("invalid component %q: %v", arg, err))
					return
				}
				comps[i] = v
			}
			if err := ops.SetTriColor(comps[0], comps[1], comps[2]); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "indicate",
		Help: "indicate red|blue|yellow|off",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: indicate red|blue|yellow|off"))
				return
			}
			var err error
			switch strings.ToLower(c.Args[0]) {
			case "red":
				err = session.IndicateRed()
			case "blue":
				err = session.IndicateBlue()
			case "yellow":
				err = session.IndicateYellow()
			case "off":
				err = session.IndicatorOff()
			default:
				c.Err(fmt.Errorf("unknown color %q", c.Args[0]))
				return
			}
			if err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "temp",
		Help: "most recent temperature",
		Func: func(c *ishell.Context) { c.Println(ops.LatestTemperature()) },
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "gyro",
		Help: "most recent angular rate (dps)",
		Func: func(c *ishell.Context) { c.Println(ops.LatestGyro()) },
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "acc",
		Help: "most recent acceleration (g)",
		Func: func(c *ishell.Context) { c.Println(ops.LatestAccelerometer()) },
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "packet",
		Help: "most recent full packet",
		Func: func(c *ishell.Context) {
			pkt, ok := session.LatestPacket(queryTimeout)
			if !ok {
				c.Println(senseboard.Unavailable)
				return
			}
			c.Println(formatPacket(pkt))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stats",
		Help: "loop and command counters",
		Func: func(c *ishell.Context) {
			snap := session.MetricsSnapshot()
			c.Printf("lines=%d packets=%d drops=%d readErrs=%d cmds=%d writeErrs=%d hits=%d timeouts=%d\n",
				snap.LinesRead, snap.PacketsDecoded, snap.DecodeDrops, snap.ReadErrors,
				snap.CommandsSent, snap.WriteErrors, snap.QueryHits, snap.QueryTimeouts)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "watch",
		Help: "watch [seconds] - stream packets (default 5s)",
		Func: func(c *ishell.Context) {
			secs := 5
			if len(c.Args) == 1 {
				v, err := strconv.Atoi(c.Args[0])
				if err != nil || v <= 0 {
					c.Err(fmt.Errorf("invalid duration %q", c.Args[0]))
					return
				}
				secs = v
			}
			deadline := time.Now().Add(time.Duration(secs) * time.Second)
			for time.Now().Before(deadline) {
				pkt, ok := session.LatestPacket(500 * time.Millisecond)
				if !ok {
					continue
				}
				c.Println(formatPacket(pkt))
			}
		},
	})

	shell.Run()
}

func formatPacket(pkt *senseboard.SensorPacket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s |", pkt.Timestamp.Format(time.RFC3339Nano))
	if pkt.HS3003TempC != nil {
		fmt.Fprintf(&b, " T=%.2fC", *pkt.HS3003TempC)
	}
	if pkt.HS3003Humidity != nil {
		fmt.Fprintf(&b, " H=%.1f%%", *pkt.HS3003Humidity)
	}
	if pkt.LPS22HBPressureKPa != nil {
		fmt.Fprintf(&b, " P=%.3fkPa", *pkt.LPS22HBPressureKPa)
	}
	if pkt.LPS22HBTempC != nil {
		fmt.Fprintf(&b, " Tbaro=%.2fC", *pkt.LPS22HBTempC)
	}
	if pkt.AccelG != nil {
		fmt.Fprintf(&b, " acc=%s", pkt.AccelG)
	}
	if pkt.GyroDPS != nil {
		fmt.Fprintf(&b, " gyro=%s", pkt.GyroDPS)
	}
	if pkt.MagUT != nil {
		fmt.Fprintf(&b, " mag=%s", pkt.MagUT)
	}
	if pkt.APDSProximity != nil {
		fmt.Fprintf(&b, " prox=%d", *pkt.APDSProximity)
	}
	if pkt.APDSColor != nil {
		fmt.Fprintf(&b, " color=%s", pkt.APDSColor)
	}
	if pkt.APDSGesture != nil {
		fmt.Fprintf(&b, " gesture=%d", *pkt.APDSGesture)
	}
	return b.String()
}
