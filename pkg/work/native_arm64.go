//go:build arm64

package work

// HasNative reports whether an assembly countdown loop exists for this GOARCH.
const HasNative = true

// countdownASM adds one to c in a register with 16 NOPs per pass until it is
// no longer negative. Implemented in native_arm64.s.
func countdownASM(c int64) int64
