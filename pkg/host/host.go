// Package host records what the machine was doing when a run started, so a
// noisy series can be told apart from a busy host.
package host

import "time"

// Snapshot is the host state just before sampling.
type Snapshot struct {
	Taken         time.Time      `json:"taken"`
	Kernel        string         `json:"kernel,omitempty"`
	LoadAverages  [3]float64     `json:"load_averages"`
	Runnable      int            `json:"runnable"`
	Processes     int            `json:"processes"`
	ProcessStates map[string]int `json:"process_states,omitempty"`
	IsolatedCPUs  string         `json:"isolated_cpus,omitempty"`
	NoHZFullCPUs  string         `json:"nohz_full_cpus,omitempty"`
}
