//go:build !amd64 && !arm64

package timer

// hardware reports that no cycle counter backend exists for this architecture.
func hardware() (Source, bool) {
	return Source{}, false
}
