package coordinator

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/ftq/pkg/affinity"
	"github.com/danpilch/ftq/pkg/buffer"
	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/timer"
)

func testConfig(mode config.Mode, threads int) config.Config {
	cfg := config.Defaults(mode)
	cfg.Samples = 200
	cfg.Bits = 10
	cfg.Warmup = 10
	cfg.Threads = threads
	cfg.Multithreaded = threads > 1
	return cfg
}

func newBuffer(t *testing.T, cfg config.Config) *buffer.Buffer {
	t.Helper()
	buf, err := buffer.New(cfg.Threads, cfg.Samples, cfg.Stride())
	if err != nil {
		t.Fatalf("buffer.New: %v", err)
	}
	return buf
}

func captureLogger() (*logrus.Logger, *bytes.Buffer) {
	var out bytes.Buffer
	log := logrus.New()
	log.SetOutput(&out)
	log.SetLevel(logrus.WarnLevel)
	return log, &out
}

func TestRunSingleThread(t *testing.T) {
	cfg := testConfig(config.TimeQuantum, 1)
	buf := newBuffer(t, cfg)

	res, err := New(cfg, timer.Monotonic, nil).Run(buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Threads) != 1 {
		t.Fatalf("got %d thread reports, want 1", len(res.Threads))
	}
	rep := res.Threads[0]
	if rep.Samples != cfg.Samples || rep.Warmup != cfg.Warmup {
		t.Fatalf("report = %+v, want %d samples after %d warm-up", rep, cfg.Samples, cfg.Warmup)
	}
	if rep.Pinned || rep.CPU != -1 {
		t.Fatalf("single-threaded run should not pin: %+v", rep)
	}

	s := buf.Series(0)
	for i := 0; i < s.Len(); i++ {
		start := s.Field(i, 0)
		if start == 0 {
			t.Fatalf("sample %d has zero start tick", i)
		}
		if i > 0 && start < s.Field(i-1, 0) {
			t.Fatalf("sample %d start %d before previous %d", i, start, s.Field(i-1, 0))
		}
	}
}

func TestRunMultiThread(t *testing.T) {
	cfg := testConfig(config.WorkQuantum, 4)
	cfg.Samples = 1000
	buf := newBuffer(t, cfg)

	log, out := captureLogger()
	c := New(cfg, timer.Monotonic, log)
	var (
		mu    sync.Mutex
		calls = map[int]bool{}
	)
	c.pin = func(cpu int) (affinity.Restore, error) {
		mu.Lock()
		calls[cpu] = true
		mu.Unlock()
		return func() error { return nil }, nil
	}

	res, err := c.Run(buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Threads) != 4 {
		t.Fatalf("got %d thread reports, want 4", len(res.Threads))
	}
	for i, rep := range res.Threads {
		if rep.Thread != i || rep.Samples != cfg.Samples {
			t.Fatalf("report %d = %+v", i, rep)
		}
		s := buf.Series(i)
		for j := 0; j < s.Len(); j++ {
			if s.Field(j, 0) == 0 {
				t.Fatalf("thread %d sample %d has zero elapsed ticks", i, j)
			}
		}
	}
	for i, rep := range res.Threads {
		if rep.Pinned != calls[i] {
			t.Fatalf("thread %d pinned=%v but pin called=%v", i, rep.Pinned, calls[i])
		}
		if rep.Pinned && rep.CPU != i {
			t.Fatalf("thread %d pinned to CPU %d", i, rep.CPU)
		}
	}
	if strings.Contains(out.String(), "Failed to set CPU affinity") {
		t.Fatalf("unexpected affinity warning: %s", out.String())
	}
}

func TestRunPinFailureWarns(t *testing.T) {
	cfg := testConfig(config.TimeQuantum, 2)
	buf := newBuffer(t, cfg)

	log, out := captureLogger()
	c := New(cfg, timer.Monotonic, log)
	c.pin = func(int) (affinity.Restore, error) {
		return nil, errors.New("operation not permitted")
	}

	res, err := c.Run(buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, rep := range res.Threads {
		if rep.Pinned || rep.CPU != -1 {
			t.Fatalf("thread %d reported pinned after failure: %+v", rep.Thread, rep)
		}
		if rep.Samples != cfg.Samples {
			t.Fatalf("thread %d took %d samples, want %d", rep.Thread, rep.Samples, cfg.Samples)
		}
	}
	if !strings.Contains(out.String(), "Failed to set CPU affinity") {
		t.Fatalf("expected affinity warning, got %q", out.String())
	}
}

func TestRunShapeMismatch(t *testing.T) {
	cfg := testConfig(config.TimeQuantum, 2)
	buf, err := buffer.New(1, cfg.Samples, cfg.Stride())
	if err != nil {
		t.Fatalf("buffer.New: %v", err)
	}
	if _, err := New(cfg, timer.Monotonic, nil).Run(buf); err == nil {
		t.Fatal("expected error for mismatched buffer")
	}
}

func TestRunUnknownPrimitive(t *testing.T) {
	cfg := testConfig(config.TimeQuantum, 1)
	cfg.Primitive = "nope"
	if _, err := New(cfg, timer.Monotonic, nil).Run(newBuffer(t, cfg)); err == nil {
		t.Fatal("expected error for unknown primitive")
	}
}
