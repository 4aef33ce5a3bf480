// Package timer provides the tick counters read by the samplers.
//
// A Source is read on every clock check of the time-quantum loop and twice per
// sample in the work-quantum loop, so backends are chosen for low and, above
// all, consistent call overhead rather than for absolute accuracy.
package timer

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Source is a monotonic tick counter.
type Source struct {
	// Name identifies the backend (e.g., "tsc", "cntvct", "monotonic").
	Name string

	// Now returns the current tick count. Successive calls never decrease.
	Now func() uint64

	// FrequencyHz is the tick rate, or 0 when the hardware does not report it.
	FrequencyHz uint64
}

var defaultSource = pickDefault()

func pickDefault() Source {
	if hw, ok := hardware(); ok {
		return hw
	}
	return Monotonic
}

// Default returns the hardware counter when the platform has one, and the
// monotonic clock otherwise.
func Default() Source {
	return defaultSource
}

// Available returns every backend usable on this platform, sorted by name.
func Available() []Source {
	sources := []Source{Monotonic}
	if hw, ok := hardware(); ok {
		sources = append(sources, hw)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})
	return sources
}

// Lookup returns the backend with the given name. An empty name selects Default.
func Lookup(name string) (Source, error) {
	if name == "" {
		return Default(), nil
	}
	names := make([]string, 0, 2)
	for _, s := range Available() {
		if s.Name == name {
			return s, nil
		}
		names = append(names, s.Name)
	}
	return Source{}, fmt.Errorf("unknown timer %q (available: %s)", name, strings.Join(names, ", "))
}

// Overhead returns the smallest delta observed between two back-to-back reads
// over n attempts.
func (s Source) Overhead(n int) uint64 {
	if n < 1 {
		n = 1
	}
	now := s.Now
	ovhd := uint64(math.MaxUint64)
	for i := 0; i < n; i++ {
		t0 := now()
		delta := now() - t0
		if delta < ovhd {
			ovhd = delta
		}
	}
	return ovhd
}
