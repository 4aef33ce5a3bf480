//go:build linux

package affinity

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// statusPath is the per-thread status file; /proc/self/status would report
// the whole process.
const statusPath = "/proc/thread-self/status"

func threadSwitches() (Switches, error) {
	file, err := os.Open(statusPath)
	if err != nil {
		return Switches{}, err
	}
	defer file.Close()
	return parseSwitches(file)
}

func parseSwitches(file *os.File) (Switches, error) {
	var (
		s     Switches
		found int
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		var dst *int64
		switch {
		case strings.HasPrefix(line, "voluntary_ctxt_switches:"):
			dst = &s.Voluntary
		case strings.HasPrefix(line, "nonvoluntary_ctxt_switches:"):
			dst = &s.Involuntary
		default:
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return Switches{}, fmt.Errorf("unexpected format: %q", line)
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Switches{}, fmt.Errorf("cannot parse %q: %w", line, err)
		}
		*dst = v
		found++
	}
	if err := scanner.Err(); err != nil {
		return Switches{}, err
	}
	if found < 2 {
		return Switches{}, fmt.Errorf("ctxt_switches not found in %s", file.Name())
	}
	return s, nil
}
