//go:build linux

package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const (
	procRoot   = "/proc"
	sysCPURoot = "/sys/devices/system/cpu"
)

// Take reads the current host state. Fields that cannot be read are left
// empty; only a missing /proc/loadavg is an error.
func Take() (*Snapshot, error) {
	s := &Snapshot{
		Taken:         time.Now(),
		ProcessStates: make(map[string]int),
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		s.Kernel = unix.ByteSliceToString(uts.Release[:])
	}

	data, err := os.ReadFile(filepath.Join(procRoot, "loadavg"))
	if err != nil {
		return nil, fmt.Errorf("cannot read load averages: %w", err)
	}
	if err := parseLoadavg(string(data), s); err != nil {
		return nil, err
	}

	stats, _ := filepath.Glob(filepath.Join(procRoot, "[0-9]*", "stat"))
	for _, path := range stats {
		if state, err := readState(path); err == nil {
			s.ProcessStates[state]++
		}
	}

	s.IsolatedCPUs = readCPUList("isolated")
	s.NoHZFullCPUs = readCPUList("nohz_full")
	return s, nil
}

// parseLoadavg reads "0.52 0.58 0.59 3/467 12345".
func parseLoadavg(content string, s *Snapshot) error {
	fields := strings.Fields(content)
	if len(fields) < 4 {
		return fmt.Errorf("invalid loadavg format: %q", content)
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return fmt.Errorf("invalid load average %q: %w", fields[i], err)
		}
		s.LoadAverages[i] = v
	}
	run, total, ok := strings.Cut(fields[3], "/")
	if !ok {
		return fmt.Errorf("invalid task counts %q", fields[3])
	}
	s.Runnable, _ = strconv.Atoi(run)
	s.Processes, _ = strconv.Atoi(total)
	return nil
}

// readState returns the one-letter state from a /proc/[pid]/stat file.
func readState(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	// The command name may itself contain ')' and spaces.
	end := strings.LastIndex(content, ")")
	if end < 0 || end+2 >= len(content) {
		return "", fmt.Errorf("invalid stat format")
	}
	rest := strings.Fields(content[end+2:])
	if len(rest) == 0 {
		return "", fmt.Errorf("invalid stat format")
	}
	return rest[0], nil
}

func readCPUList(name string) string {
	data, err := os.ReadFile(filepath.Join(sysCPURoot, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
