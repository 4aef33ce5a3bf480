package work

// Unroll is the number of increments per pass of the generic loop. Each pass
// adds Unroll and subtracts Unroll-1, a net step of one.
const Unroll = 32

// Counter is the portable countdown loop.
type Counter struct{}

// Name returns the primitive name.
func (Counter) Name() string { return "countdown" }

// Countdown runs the unrolled loop.
func (Counter) Countdown(c int64) int64 {
	return countdown(c)
}

// countdown is kept out of line so the loop body cannot be folded into the
// caller's interval check.
//
//go:noinline
func countdown(c int64) int64 {
	for c < 0 {
		for k := 0; k < Unroll; k++ {
			c++
		}
		for k := 0; k < Unroll-1; k++ {
			c--
		}
	}
	return c
}
