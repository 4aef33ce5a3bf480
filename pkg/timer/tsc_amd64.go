//go:build amd64

package timer

// rdtsc reads the time stamp counter. Implemented in tsc_amd64.s.
func rdtsc() uint64

// hardware returns the TSC. Its frequency is not architecturally exposed, so
// FrequencyHz stays 0 and callers calibrate against the monotonic clock.
func hardware() (Source, bool) {
	return Source{Name: "tsc", Now: rdtsc}, true
}
