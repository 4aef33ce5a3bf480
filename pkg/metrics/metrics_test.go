package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danpilch/ftq/pkg/affinity"
	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/coordinator"
	"github.com/danpilch/ftq/pkg/sanity"
	"github.com/danpilch/ftq/pkg/timer"
)

func testResult() *coordinator.Result {
	cfg := config.Defaults(config.TimeQuantum)
	cfg.Threads = 2
	cfg.Bits = 12
	return &coordinator.Result{
		Config:    cfg,
		Timer:     timer.Monotonic,
		Primitive: "countdown",
		Started:   time.Unix(1700000000, 0),
		Duration:  2 * time.Second,
		Threads: []coordinator.ThreadReport{
			{Thread: 0, CPU: 0, Pinned: true, Samples: 10000, Duration: time.Second,
				Switches: affinity.Switches{Voluntary: 1, Involuntary: 7}, SwitchesKnown: true},
			{Thread: 1, CPU: -1, Samples: 10000, Duration: time.Second},
		},
	}
}

func TestObserve(t *testing.T) {
	e := New()
	rep := sanity.Report{Results: []sanity.Result{{Passed: true}, {Passed: false}}}
	e.Observe(testResult(), rep)

	if got := testutil.ToFloat64(e.samples.WithLabelValues("time", "1")); got != 10000 {
		t.Fatalf("samples = %v, want 10000", got)
	}
	if got := testutil.ToFloat64(e.pinned.WithLabelValues("time", "0")); got != 1 {
		t.Fatalf("pinned thread 0 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.pinned.WithLabelValues("time", "1")); got != 0 {
		t.Fatalf("pinned thread 1 = %v, want 0", got)
	}
	if got := testutil.ToFloat64(e.involuntary.WithLabelValues("time", "0")); got != 7 {
		t.Fatalf("involuntary = %v, want 7", got)
	}
	if got := testutil.ToFloat64(e.quantum.WithLabelValues("time", "monotonic", "countdown")); got != 4096 {
		t.Fatalf("quantum = %v, want 4096", got)
	}
	if got := testutil.ToFloat64(e.failures.WithLabelValues("time", "monotonic", "countdown")); got != 1 {
		t.Fatalf("failures = %v, want 1", got)
	}
	// Thread 1 had no switch counters, so no series was created for it.
	if n := testutil.CollectAndCount(e.involuntary); n != 1 {
		t.Fatalf("involuntary series = %d, want 1", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	e := New()
	e.Observe(testResult(), sanity.Report{})

	path := filepath.Join(t.TempDir(), "ftq.prom")
	if err := e.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"# TYPE osnoise_thread_samples gauge",
		`osnoise_thread_samples{mode="time",thread="0"} 10000`,
		`osnoise_run_duration_seconds{mode="time",primitive="countdown",timer="monotonic"} 2`,
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestWriteTextfileError(t *testing.T) {
	e := New()
	if err := e.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
