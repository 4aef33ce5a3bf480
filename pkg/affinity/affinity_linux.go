//go:build linux

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Supported reports whether Pin can bind threads on this platform.
const Supported = true

func pin(cpu int) (Restore, error) {
	// pid 0 selects the calling thread.
	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return nil, fmt.Errorf("sched_getaffinity: %w", err)
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("sched_setaffinity cpu %d: %w", cpu, err)
	}
	return func() error {
		return unix.SchedSetaffinity(0, &prev)
	}, nil
}

// ThreadID returns the kernel id of the calling thread.
func ThreadID() int {
	return unix.Gettid()
}
