package work

// Native is the hand-written assembly loop. Only registered when HasNative.
type Native struct{}

// Name returns the primitive name.
func (Native) Name() string { return "native" }

// Countdown runs the assembly loop.
func (Native) Countdown(c int64) int64 {
	return countdownASM(c)
}
