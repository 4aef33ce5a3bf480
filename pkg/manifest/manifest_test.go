package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/danpilch/ftq/pkg/buffer"
	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/coordinator"
	"github.com/danpilch/ftq/pkg/sanity"
	"github.com/danpilch/ftq/pkg/timer"
)

func TestSaveLoad(t *testing.T) {
	cfg := config.Defaults(config.WorkQuantum)
	cfg.Samples = 1000
	cfg.Threads = 2
	cfg.Multithreaded = true
	cfg.WithStart = true
	cfg.Dir = t.TempDir()

	buf, err := buffer.New(cfg.Threads, cfg.Samples, cfg.Stride())
	if err != nil {
		t.Fatal(err)
	}
	res := &coordinator.Result{
		Config:    cfg,
		Buffer:    buf,
		Timer:     timer.Monotonic,
		Primitive: "daxpy",
		Started:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Threads: []coordinator.ThreadReport{
			{Thread: 0, CPU: 0, Pinned: true, Samples: 1000},
			{Thread: 1, CPU: -1, Samples: 1000},
		},
	}
	rep := sanity.Report{Results: []sanity.Result{{Check: "sample count", Passed: true}}}

	m := New(res, rep)
	if m.Tool != "fwq" {
		t.Fatalf("Tool = %q, want fwq", m.Tool)
	}
	want := []string{"fwq_0_times.dat", "fwq_0_starts.dat", "fwq_1_times.dat", "fwq_1_starts.dat"}
	if !reflect.DeepEqual(m.Files, want) {
		t.Fatalf("Files = %v, want %v", m.Files, want)
	}

	path, err := m.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != filepath.Join(cfg.Dir, "fwq_manifest.json") {
		t.Fatalf("path = %q", path)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Config != cfg {
		t.Fatalf("Config = %+v, want %+v", got.Config, cfg)
	}
	if !got.Timestamp.Equal(res.Started) || got.Duration != res.Duration {
		t.Fatalf("timing = %v/%v", got.Timestamp, got.Duration)
	}
	if len(got.Threads) != 2 || got.Threads[1].CPU != -1 || !got.Threads[0].Pinned {
		t.Fatalf("Threads = %+v", got.Threads)
	}
	if got.Timer.Name != timer.Monotonic.Name || !got.Sanity.OK() {
		t.Fatalf("Timer/Sanity = %+v / %+v", got.Timer, got.Sanity)
	}
}

func TestStreamRunHasNoFiles(t *testing.T) {
	cfg := config.Defaults(config.TimeQuantum)
	cfg.Output = config.OutputStdout
	buf, err := buffer.New(1, 1, cfg.Stride())
	if err != nil {
		t.Fatal(err)
	}
	m := New(&coordinator.Result{Config: cfg, Buffer: buf}, sanity.Report{})
	if len(m.Files) != 0 {
		t.Fatalf("Files = %v, want none", m.Files)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing manifest")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected error for malformed manifest")
	}
}
