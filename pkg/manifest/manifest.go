// Package manifest records how a run was taken next to its data files, so
// a series can be interpreted later without the command line that made it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/coordinator"
	"github.com/danpilch/ftq/pkg/host"
	"github.com/danpilch/ftq/pkg/output"
	"github.com/danpilch/ftq/pkg/sanity"
)

// Timer describes the clock the samples were taken with.
type Timer struct {
	Name        string `json:"name"`
	FrequencyHz uint64 `json:"frequency_hz,omitempty"`
	OverheadTks uint64 `json:"overhead_ticks"`
}

// Manifest is a snapshot of one run's parameters and environment.
type Manifest struct {
	Tool      string                     `json:"tool"`
	Timestamp time.Time                  `json:"timestamp"`
	Hostname  string                     `json:"hostname"`
	GOOS      string                     `json:"goos"`
	GOARCH    string                     `json:"goarch"`
	NumCPU    int                        `json:"num_cpu"`
	GoVersion string                     `json:"go_version"`
	Host      *host.Snapshot             `json:"host,omitempty"`
	Config    config.Config              `json:"config"`
	Timer     Timer                      `json:"timer"`
	Primitive string                     `json:"primitive"`
	Duration  time.Duration              `json:"duration_ns"`
	Threads   []coordinator.ThreadReport `json:"threads"`
	Files     []string                   `json:"files,omitempty"`
	Sanity    sanity.Report              `json:"sanity"`
}

// New builds the manifest of a finished run.
func New(res *coordinator.Result, rep sanity.Report) *Manifest {
	hostname, _ := os.Hostname()
	cfg := res.Config
	tool := "ftq"
	if cfg.Mode == config.WorkQuantum {
		tool = "fwq"
	}

	m := &Manifest{
		Tool:      tool,
		Timestamp: res.Started,
		Hostname:  hostname,
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
		Config:    cfg,
		Timer: Timer{
			Name:        res.Timer.Name,
			FrequencyHz: res.Timer.FrequencyHz,
		},
		Primitive: res.Primitive,
		Duration:  res.Duration,
		Threads:   res.Threads,
		Sanity:    rep,
	}
	if res.Timer.Now != nil {
		m.Timer.OverheadTks = res.Timer.Overhead(1000)
	}
	if cfg.Output == config.OutputFiles {
		for t := 0; t < cfg.Threads; t++ {
			for _, col := range output.Columns(cfg) {
				m.Files = append(m.Files, filepath.Base(output.FileName(cfg, t, col)))
			}
		}
	}
	return m
}

// Path returns where the manifest of a run configured by cfg is written.
func Path(cfg config.Config) string {
	return filepath.Join(cfg.Dir, cfg.Prefix+"_manifest.json")
}

// Save writes the manifest next to the data files.
func (m *Manifest) Save() (string, error) {
	path := Path(m.Config)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("cannot write manifest: %w", err)
	}
	return path, nil
}

// Load reads a manifest written by Save.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest %q: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot parse manifest: %w", err)
	}
	return &m, nil
}
