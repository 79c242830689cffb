// padd runs the controller core: it watches the buttons, samples the
// joystick and motion sensor, and streams axis frames to the host over a
// serial link. Button transitions are printed on stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/strumpad/strumpad/board"
	"github.com/strumpad/strumpad/buttons"
	"github.com/strumpad/strumpad/config"
	"github.com/strumpad/strumpad/frame"
	"github.com/strumpad/strumpad/pipeline"
	"github.com/strumpad/strumpad/shm"
	"github.com/strumpad/strumpad/sim"
)

var version = "dev"

type options struct {
	configPath string
	port       string
	layout     string
	logLevel   string
	simulate   bool
	motion     bool
	listPorts  bool
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:   "padd",
		Short: "Guitar controller daemon",
		Long: `padd reads the fret buttons, the analog stick and the optional motion
sensor and sends axis frames to the host over a serial link. Button
changes are printed as "<key>:DOWN" and "<key>:UP" lines on stdout.

Configuration is read from a YAML file, then STRUMPAD_* environment
variables, then flags. Use --simulate to run without hardware.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "configuration file")
	f.StringVarP(&opts.port, "port", "p", "", "serial port for the host link")
	f.StringVarP(&opts.layout, "layout", "l", "", "frame layout: axis-first or marker-first")
	f.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	f.BoolVar(&opts.simulate, "simulate", false, "use simulated peripherals")
	f.BoolVar(&opts.motion, "motion", false, "enable the motion sensor")
	f.BoolVar(&opts.listPorts, "list-ports", false, "list serial ports and exit")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, opts options) error {
	if opts.listPorts {
		ports, err := board.Ports()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "padd",
	})
	lvl, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var status pipeline.StatusWriter
	if cfg.Capabilities.HasDiagnosticDisplay {
		st, err := shm.CreateStatus(cfg.Board.StatusShm)
		if err != nil {
			return fmt.Errorf("creating status shm: %w", err)
		}
		defer st.Close()
		defer st.Unlink()
		logger.Info("status published", "path", shm.Path(cfg.Board.StatusShm), "session", st.Session())
		status = st
	}

	var dev pipeline.Devices
	if opts.simulate {
		dev, err = simulated(ctx, cfg, opts.port, logger)
		if err != nil {
			return err
		}
	} else {
		b, err := board.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()
		dev = b.Devices(os.Stdout, nil)
	}
	dev.Diagnostic = os.Stdout
	dev.Status = status

	p, err := pipeline.New(cfg, dev, logger)
	if err != nil {
		return err
	}
	return p.Run(ctx)
}

func loadConfig(cmd *cobra.Command, opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Serial.Port = opts.port
	}
	if f.Changed("layout") {
		l, err := frame.ParseLayout(opts.layout)
		if err != nil {
			return cfg, err
		}
		cfg.FrameLayout = l
	}
	if f.Changed("motion") {
		cfg.Capabilities.HasMotionSensor = opts.motion
	}
	return cfg, cfg.Validate()
}

// simulated builds synthetic devices that strum the frets, wiggle the stick
// and shake the motion sensor now and then. Frames go to port when one is
// given and to the debug log otherwise.
func simulated(ctx context.Context, cfg config.Config, port string, logger *log.Logger) (pipeline.Devices, error) {
	in := new(buttons.Inputs)
	go sim.Strum(ctx, in, buttons.All(), 500*time.Millisecond)

	dev := pipeline.Devices{Inputs: in}
	if cfg.Capabilities.HasAnalogAxes {
		dev.Axes = sim.NewStick(20, uint64(time.Now().UnixNano()))
	}
	if cfg.Capabilities.HasMotionSensor {
		imu := sim.NewIMU()
		go func() {
			t := time.NewTicker(3 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					imu.Shake()
				}
			}
		}()
		dev.Motion = imu
	}

	if port == "" {
		dev.Serial = &frameLog{logger: logger, layout: cfg.FrameLayout}
		return dev, nil
	}
	sp, err := board.OpenSerial(port, cfg.Serial.Baud)
	if err != nil {
		return dev, err
	}
	context.AfterFunc(ctx, func() { sp.Close() })
	dev.Serial = frame.Writer(sp)
	return dev, nil
}

// frameLog collects bytes into frames and logs each one.
type frameLog struct {
	logger *log.Logger
	layout frame.Layout
	buf    [frame.Size]byte
	n      int
}

func (w *frameLog) WriteByte(c byte) error {
	w.buf[w.n] = c
	w.n++
	if w.n < frame.Size {
		return nil
	}
	w.n = 0
	ev, err := frame.Decode(w.layout, w.buf)
	if err != nil {
		return err
	}
	w.logger.Debug("frame", "bytes", fmt.Sprintf("% x", w.buf[:]), "axis", ev.Axis, "value", ev.Value)
	return nil
}

var _ io.ByteWriter = (*frameLog)(nil)
