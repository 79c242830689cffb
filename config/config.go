// Package config gathers every tunable of the controller in one structure
// and loads it from YAML, the environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/strumpad/strumpad/axis"
	"github.com/strumpad/strumpad/buttons"
	"github.com/strumpad/strumpad/event"
	"github.com/strumpad/strumpad/frame"
	"github.com/strumpad/strumpad/motion"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STRUMPAD_"

// Capabilities selects which producers a deployment runs. Buttons and the
// frame transmitter are always present.
type Capabilities struct {
	HasAnalogAxes        bool `yaml:"has_analog_axes"`
	HasMotionSensor      bool `yaml:"has_motion_sensor"`
	HasDiagnosticDisplay bool `yaml:"has_diagnostic_display"`
}

// Serial is the transmission link.
type Serial struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Board maps logical inputs to host peripherals.
type Board struct {
	Buttons    map[string]string `yaml:"buttons"` // button name -> GPIO name
	I2CBus     string            `yaml:"i2c_bus"`
	MotionAddr uint16            `yaml:"motion_addr"`
	ADCAddr    uint16            `yaml:"adc_addr"`
	StatusShm  string            `yaml:"status_shm"`
}

// Config is the central configuration of the pipeline.
type Config struct {
	PollPeriodButtons      time.Duration `yaml:"poll_period_buttons"`
	SamplePeriodAxis       time.Duration `yaml:"sample_period_axis"`
	SamplePeriodMotion     time.Duration `yaml:"sample_period_motion"`
	DeadZoneThreshold      int           `yaml:"dead_zone_threshold"`
	WatchdogZeroThreshold  int           `yaml:"watchdog_zero_threshold"`
	MotionTriggerThreshold int           `yaml:"motion_trigger_threshold"`
	ChannelCapacity        int           `yaml:"channel_capacity"`
	FilterWindow           int           `yaml:"filter_window"`
	FrameLayout            frame.Layout  `yaml:"frame_layout"`
	StatusPeriod           time.Duration `yaml:"status_period"`

	Capabilities Capabilities `yaml:"capabilities"`
	Serial       Serial       `yaml:"serial"`
	Board        Board        `yaml:"board"`
}

// Default returns the stock configuration: buttons and joystick, no motion
// sensor, axis-first frames.
func Default() Config {
	return Config{
		PollPeriodButtons:      buttons.DefaultPollPeriod,
		SamplePeriodAxis:       10 * time.Millisecond,
		SamplePeriodMotion:     motion.DefaultPeriod,
		DeadZoneThreshold:      axis.DefaultDeadZone,
		WatchdogZeroThreshold:  motion.DefaultZeroThreshold,
		MotionTriggerThreshold: motion.DefaultTriggerThreshold,
		ChannelCapacity:        event.DefaultCapacity,
		FilterWindow:           axis.DefaultWindow,
		FrameLayout:            frame.AxisFirst,
		StatusPeriod:           100 * time.Millisecond,
		Capabilities: Capabilities{
			HasAnalogAxes: true,
		},
		Serial: Serial{
			Port: "/dev/ttyAMA0",
			Baud: 115200,
		},
		Board: Board{
			Buttons: map[string]string{
				"laranja":  "GPIO22",
				"azul":     "GPIO21",
				"amarelo":  "GPIO20",
				"vermelho": "GPIO18",
				"verde":    "GPIO19",
				"click":    "GPIO16",
			},
			I2CBus:     "",
			MotionAddr: motion.DefaultAddr,
			ADCAddr:    0x48,
			StatusShm:  "strumpad_status",
		},
	}
}

// DefaultPath is $HOME/.config/strumpad.yaml.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "strumpad.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv applies STRUMPAD_* overrides using lookup (os.LookupEnv in
// production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	durations := map[string]*time.Duration{
		"POLL_PERIOD_BUTTONS":  &c.PollPeriodButtons,
		"SAMPLE_PERIOD_AXIS":   &c.SamplePeriodAxis,
		"SAMPLE_PERIOD_MOTION": &c.SamplePeriodMotion,
		"STATUS_PERIOD":        &c.StatusPeriod,
	}
	for k, p := range durations {
		if v, ok := lookup(EnvPrefix + k); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, k, err)
			}
			*p = d
		}
	}

	ints := map[string]*int{
		"FILTER_WINDOW":            &c.FilterWindow,
		"DEAD_ZONE_THRESHOLD":      &c.DeadZoneThreshold,
		"WATCHDOG_ZERO_THRESHOLD":  &c.WatchdogZeroThreshold,
		"MOTION_TRIGGER_THRESHOLD": &c.MotionTriggerThreshold,
		"CHANNEL_CAPACITY":         &c.ChannelCapacity,
		"SERIAL_BAUD":              &c.Serial.Baud,
	}
	for k, p := range ints {
		if v, ok := lookup(EnvPrefix + k); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, k, err)
			}
			*p = n
		}
	}

	bools := map[string]*bool{
		"HAS_ANALOG_AXES":        &c.Capabilities.HasAnalogAxes,
		"HAS_MOTION_SENSOR":      &c.Capabilities.HasMotionSensor,
		"HAS_DIAGNOSTIC_DISPLAY": &c.Capabilities.HasDiagnosticDisplay,
	}
	for k, p := range bools {
		if v, ok := lookup(EnvPrefix + k); ok {
			*p = v == "1" || strings.EqualFold(v, "true")
		}
	}

	if v, ok := lookup(EnvPrefix + "SERIAL_PORT"); ok {
		c.Serial.Port = v
	}
	if v, ok := lookup(EnvPrefix + "FRAME_LAYOUT"); ok {
		if err := c.FrameLayout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%sFRAME_LAYOUT: %w", EnvPrefix, err)
		}
	}
	return nil
}

// Validate rejects settings the pipeline cannot start with.
func (c Config) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"poll_period_buttons":  c.PollPeriodButtons,
		"sample_period_axis":   c.SamplePeriodAxis,
		"sample_period_motion": c.SamplePeriodMotion,
		"status_period":        c.StatusPeriod,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.ChannelCapacity <= 0 {
		errs = append(errs, fmt.Errorf("channel_capacity must be positive, got %d", c.ChannelCapacity))
	}
	if c.FilterWindow <= 0 {
		errs = append(errs, fmt.Errorf("filter_window must be positive, got %d", c.FilterWindow))
	}
	if c.DeadZoneThreshold < 0 {
		errs = append(errs, fmt.Errorf("dead_zone_threshold must not be negative, got %d", c.DeadZoneThreshold))
	}
	if c.WatchdogZeroThreshold <= 0 {
		errs = append(errs, fmt.Errorf("watchdog_zero_threshold must be positive, got %d", c.WatchdogZeroThreshold))
	}
	if c.FrameLayout > frame.MarkerFirst {
		errs = append(errs, fmt.Errorf("frame_layout: %w", frame.ErrLayout))
	}
	for name := range c.Board.Buttons {
		if _, err := buttons.ParseButton(name); err != nil {
			errs = append(errs, fmt.Errorf("board.buttons: %w", err))
		}
	}
	return errors.Join(errs...)
}
