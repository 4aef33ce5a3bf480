package timer

import "time"

// epoch is the reference point for monotonic readings.
var epoch = time.Now()

func monotonicNow() uint64 {
	return uint64(time.Since(epoch))
}

// Monotonic reads the runtime's monotonic clock in nanoseconds since process
// start. It is available on every platform.
var Monotonic = Source{
	Name:        "monotonic",
	Now:         monotonicNow,
	FrequencyHz: uint64(time.Second),
}
