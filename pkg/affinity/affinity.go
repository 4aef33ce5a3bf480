// Package affinity binds sampling threads to logical CPUs and reads the
// scheduler counters of the calling OS thread.
//
// Every function acts on the current OS thread; callers must hold
// runtime.LockOSThread for the result to mean anything.
package affinity

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned on platforms without thread affinity control.
var ErrUnsupported = errors.New("thread affinity not supported on " + runtime.GOOS)

// Switches holds the context switch counters of one OS thread.
type Switches struct {
	Voluntary   int64 `json:"voluntary"`
	Involuntary int64 `json:"involuntary"`
}

// Sub returns the counter deltas since an earlier reading.
func (s Switches) Sub(earlier Switches) Switches {
	return Switches{
		Voluntary:   s.Voluntary - earlier.Voluntary,
		Involuntary: s.Involuntary - earlier.Involuntary,
	}
}

// Restore puts back the CPU mask a thread had before Pin.
type Restore func() error

// Pin binds the calling OS thread to the given logical CPU. The returned
// Restore reinstates the previous mask; threads that exit while still locked
// can ignore it.
func Pin(cpu int) (Restore, error) {
	if cpu < 0 {
		return nil, errors.New("negative cpu index")
	}
	return pin(cpu)
}

// ThreadSwitches returns the context switch counters of the calling OS thread.
func ThreadSwitches() (Switches, error) {
	return threadSwitches()
}
