// Package config holds the run configuration shared by the ftq and fwq
// commands, with the clamping and validation rules applied before any sample
// storage is allocated.
package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Mode selects which quantity the benchmark holds fixed.
type Mode string

const (
	// TimeQuantum fixes the interval and counts work done within it (ftq).
	TimeQuantum Mode = "time"
	// WorkQuantum fixes the work and measures how long it takes (fwq).
	WorkQuantum Mode = "work"
)

// Output selects where results go.
type Output string

const (
	OutputFiles  Output = "files"
	OutputStdout Output = "stdout"
)

// Limits and defaults.
const (
	MaxSamples     = 2000000
	DefaultSamples = 10000
	DefaultBits    = 20
	MinBits        = 3
	MaxBits        = 30
	DefaultWarmup  = 1000
)

// ErrConfig marks configuration errors. Test with errors.Is.
var ErrConfig = errors.New("configuration error")

// Capabilities describes optional platform support a configuration may need.
type Capabilities struct {
	// Threads is false in builds without multithreaded sampling.
	Threads bool
}

// Config is the complete description of one run. It must not change once
// sampling has started.
type Config struct {
	Mode          Mode   `json:"mode"`
	Samples       int    `json:"samples"`
	Bits          int    `json:"bits"`
	Threads       int    `json:"threads"`
	Multithreaded bool   `json:"multithreaded"`
	Output        Output `json:"output"`
	Prefix        string `json:"prefix"`
	Dir           string `json:"dir"`

	Primitive string `json:"primitive,omitempty"` // work primitive name, empty for the build default
	Timer     string `json:"timer,omitempty"`     // timer backend name, empty for the build default
	Unit      int64  `json:"unit"`                // ftq: countdown steps between clock checks
	WithStart bool   `json:"with_start"`          // fwq: also record each sample's start tick
	Warmup    int    `json:"warmup"`
	HoldGC    bool   `json:"hold_gc"`

	Manifest bool   `json:"manifest"`
	Textfile string `json:"textfile,omitempty"`
}

// Defaults returns the configuration used when no flags are given.
func Defaults(mode Mode) Config {
	prefix := "ftq"
	if mode == WorkQuantum {
		prefix = "fwq"
	}
	return Config{
		Mode:    mode,
		Samples: DefaultSamples,
		Bits:    DefaultBits,
		Threads: 1,
		Output:  OutputFiles,
		Prefix:  prefix,
		Dir:     ".",
		Unit:    1,
		Warmup:  DefaultWarmup,
		HoldGC:  true,
	}
}

// MinSamples returns the smallest accepted sample count for a mode.
func MinSamples(mode Mode) int {
	if mode == WorkQuantum {
		return 1000
	}
	return 1
}

// Normalize clamps numeric options into range, logging a warning for every
// correction.
func (c *Config) Normalize(log *logrus.Logger) {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}

	if c.Samples > MaxSamples {
		log.WithFields(logrus.Fields{"requested": c.Samples, "max": MaxSamples}).
			Warn("Sample count exceeds maximum; setting count to maximum")
		c.Samples = MaxSamples
	}
	if floor := MinSamples(c.Mode); c.Samples < floor {
		log.WithFields(logrus.Fields{"requested": c.Samples, "min": floor}).
			Warn("Sample count less than minimum; setting count to minimum")
		c.Samples = floor
	}

	if c.Bits > MaxBits || c.Bits < MinBits {
		clamped := MaxBits
		if c.Bits < MinBits {
			clamped = MinBits
		}
		log.WithFields(logrus.Fields{"requested": c.Bits, "bits": clamped}).
			Warn("Quantum bits out of range; clamping")
		c.Bits = clamped
	}

	if c.Unit < 1 {
		c.Unit = 1
	}
	if c.Warmup < 0 {
		c.Warmup = 0
	}
}

// Validate rejects configurations that cannot be run. It performs no
// allocation and must be called before the sample buffer is created.
func (c Config) Validate(caps Capabilities) error {
	switch c.Mode {
	case TimeQuantum, WorkQuantum:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrConfig, c.Mode)
	}
	switch c.Output {
	case OutputFiles, OutputStdout:
	default:
		return fmt.Errorf("%w: unknown output %q", ErrConfig, c.Output)
	}

	if c.Threads < 1 {
		return fmt.Errorf("%w: thread count %d < 1", ErrConfig, c.Threads)
	}
	if c.UseThreads() && !caps.Threads {
		return fmt.Errorf("%w: not built with threading support", ErrConfig)
	}
	if c.Multithreaded && c.Threads < 2 {
		return fmt.Errorf("%w: >1 threads required for multithread mode", ErrConfig)
	}
	if c.UseThreads() && c.Output == OutputStdout {
		return fmt.Errorf("%w: cannot output to stdout for multithread mode", ErrConfig)
	}
	if c.Output == OutputFiles && c.Prefix == "" {
		return fmt.Errorf("%w: output name prefix is empty", ErrConfig)
	}
	if c.Samples < 1 || c.Samples > MaxSamples {
		return fmt.Errorf("%w: sample count %d outside [1, %d]", ErrConfig, c.Samples, MaxSamples)
	}
	if c.Bits < MinBits || c.Bits > MaxBits {
		return fmt.Errorf("%w: quantum bits %d outside [%d, %d]", ErrConfig, c.Bits, MinBits, MaxBits)
	}
	return nil
}

// UseThreads reports whether the run uses the multithreaded coordinator.
func (c Config) UseThreads() bool {
	return c.Multithreaded || c.Threads > 1
}

// Quantum returns 2^Bits: ticks per interval in time mode, countdown steps
// per sample in work mode.
func (c Config) Quantum() uint64 {
	return uint64(1) << uint(c.Bits)
}

// Stride returns the number of buffer cells each sample occupies.
func (c Config) Stride() int {
	if c.Mode == TimeQuantum || c.WithStart {
		return 2
	}
	return 1
}
