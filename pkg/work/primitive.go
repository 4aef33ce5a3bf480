// Package work provides the synthetic work units timed by the samplers.
//
// Every primitive is driven by a signed countdown: the caller passes -n and the
// loop runs until the counter reaches zero, so the exit test is a sign check
// rather than a comparison against a bound held in memory.
package work

import (
	"fmt"
	"sort"
	"strings"
)

// Primitive is a unit of computation the optimizer cannot remove and whose
// cost grows linearly with the countdown length.
type Primitive interface {
	// Name identifies the primitive (e.g., "countdown", "native", "daxpy").
	Name() string

	// Countdown runs the loop from c up to zero and returns the final counter.
	// A non-negative c performs no work.
	Countdown(c int64) int64
}

var registry = map[string]func() Primitive{
	"countdown": func() Primitive { return Counter{} },
	"daxpy":     func() Primitive { return NewDaxpy() },
}

func init() {
	if HasNative {
		registry["native"] = func() Primitive { return Native{} }
	}
}

// Default returns the native loop when this architecture has one, and the
// generic counter otherwise.
func Default() Primitive {
	if HasNative {
		return Native{}
	}
	return Counter{}
}

// Names returns the registered primitive names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a fresh primitive by name. An empty name selects Default.
func Lookup(name string) (Primitive, error) {
	if name == "" {
		return Default(), nil
	}
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown work primitive %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}
