//go:build ftq_nothreads

package coordinator

import "github.com/danpilch/ftq/pkg/config"

// Capabilities reports what this build supports. Built with ftq_nothreads,
// only single-threaded runs are accepted.
func Capabilities() config.Capabilities {
	return config.Capabilities{Threads: false}
}
