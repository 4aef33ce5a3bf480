//go:build !ftq_nothreads

package coordinator

import "github.com/danpilch/ftq/pkg/config"

// Capabilities reports what this build supports.
func Capabilities() config.Capabilities {
	return config.Capabilities{Threads: true}
}
