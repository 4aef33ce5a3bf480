//go:build !linux

package affinity

import "os"

// Supported reports whether Pin can bind threads on this platform.
const Supported = false

func pin(int) (Restore, error) {
	return nil, ErrUnsupported
}

func threadSwitches() (Switches, error) {
	return Switches{}, ErrUnsupported
}

// ThreadID returns the process id; per-thread ids are not exposed here.
func ThreadID() int {
	return os.Getpid()
}
