package config

import (
	"bytes"
	"errors"
	"math/bits"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger(buf *bytes.Buffer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(logrus.WarnLevel)
	return log
}

func TestDefaults(t *testing.T) {
	ftq := Defaults(TimeQuantum)
	if ftq.Prefix != "ftq" || ftq.Samples != DefaultSamples || ftq.Bits != DefaultBits || ftq.Threads != 1 {
		t.Fatalf("unexpected ftq defaults: %+v", ftq)
	}
	fwq := Defaults(WorkQuantum)
	if fwq.Prefix != "fwq" || fwq.Output != OutputFiles || fwq.Warmup != DefaultWarmup {
		t.Fatalf("unexpected fwq defaults: %+v", fwq)
	}
	if err := ftq.Validate(Capabilities{Threads: true}); err != nil {
		t.Fatalf("ftq defaults invalid: %v", err)
	}
	if err := fwq.Validate(Capabilities{}); err != nil {
		t.Fatalf("fwq defaults invalid: %v", err)
	}
}

func TestNormalizeClampsBitsToNearestBound(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-4, MinBits},
		{0, MinBits},
		{MinBits - 1, MinBits},
		{MinBits, MinBits},
		{17, 17},
		{MaxBits, MaxBits},
		{MaxBits + 1, MaxBits},
		{64, MaxBits},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		c := Defaults(TimeQuantum)
		c.Bits = tc.in
		c.Normalize(quietLogger(&buf))
		if c.Bits != tc.want {
			t.Fatalf("bits %d clamped to %d, want %d", tc.in, c.Bits, tc.want)
		}
		q := c.Quantum()
		if bits.OnesCount64(q) != 1 || q < 1<<MinBits || q > 1<<MaxBits {
			t.Fatalf("quantum %d for bits %d not a power of two in range", q, c.Bits)
		}
		warned := strings.Contains(buf.String(), "out of range")
		if warned != (tc.in != tc.want) {
			t.Fatalf("bits %d: warning emitted = %v", tc.in, warned)
		}
	}
}

func TestNormalizeClampsSamples(t *testing.T) {
	cases := []struct {
		mode     Mode
		in, want int
	}{
		{TimeQuantum, MaxSamples + 1, MaxSamples},
		{TimeQuantum, 0, 1},
		{TimeQuantum, 500, 500},
		{WorkQuantum, 500, 1000},
		{WorkQuantum, 10000, 10000},
		{WorkQuantum, 3 * MaxSamples, MaxSamples},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		c := Defaults(tc.mode)
		c.Samples = tc.in
		c.Normalize(quietLogger(&buf))
		if c.Samples != tc.want {
			t.Fatalf("%s samples %d -> %d, want %d", tc.mode, tc.in, c.Samples, tc.want)
		}
	}
}

func TestNormalizeNilLogger(t *testing.T) {
	c := Defaults(TimeQuantum)
	c.Unit = 0
	c.Warmup = -3
	c.Normalize(nil)
	if c.Unit != 1 || c.Warmup != 0 {
		t.Fatalf("unit/warmup not normalized: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	caps := Capabilities{Threads: true}
	cases := []struct {
		name   string
		mutate func(*Config)
		caps   Capabilities
		errSub string
	}{
		{"single thread stdout ok", func(c *Config) { c.Output = OutputStdout }, caps, ""},
		{"four threads files ok", func(c *Config) { c.Threads = 4; c.Multithreaded = true }, caps, ""},
		{"threads with stdout", func(c *Config) { c.Threads = 4; c.Multithreaded = true; c.Output = OutputStdout }, caps, "stdout"},
		{"implicit threads with stdout", func(c *Config) { c.Threads = 2; c.Output = OutputStdout }, caps, "stdout"},
		{"multithread with one thread", func(c *Config) { c.Multithreaded = true; c.Threads = 1 }, caps, ">1 threads"},
		{"zero threads", func(c *Config) { c.Threads = 0 }, caps, "thread count"},
		{"no threading support", func(c *Config) { c.Threads = 2; c.Multithreaded = true }, Capabilities{}, "threading"},
		{"bad mode", func(c *Config) { c.Mode = "space" }, caps, "mode"},
		{"bad output", func(c *Config) { c.Output = "printer" }, caps, "output"},
		{"empty prefix", func(c *Config) { c.Prefix = "" }, caps, "prefix"},
		{"unclamped bits", func(c *Config) { c.Bits = 2 }, caps, "bits"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Defaults(TimeQuantum)
			tc.mutate(&c)
			err := c.Validate(tc.caps)
			if tc.errSub == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tc.errSub)
			}
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("error %v does not wrap ErrConfig", err)
			}
			if !strings.Contains(err.Error(), tc.errSub) {
				t.Fatalf("error %q does not mention %q", err, tc.errSub)
			}
		})
	}
}

func TestStride(t *testing.T) {
	if s := Defaults(TimeQuantum).Stride(); s != 2 {
		t.Fatalf("ftq stride %d, want 2", s)
	}
	fwq := Defaults(WorkQuantum)
	if s := fwq.Stride(); s != 1 {
		t.Fatalf("fwq stride %d, want 1", s)
	}
	fwq.WithStart = true
	if s := fwq.Stride(); s != 2 {
		t.Fatalf("fwq with start stride %d, want 2", s)
	}
}
