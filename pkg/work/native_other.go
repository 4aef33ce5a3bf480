//go:build !amd64 && !arm64

package work

// HasNative reports whether an assembly countdown loop exists for this GOARCH.
const HasNative = false

func countdownASM(c int64) int64 {
	return countdown(c)
}
