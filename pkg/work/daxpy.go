package work

// VecLen keeps both vectors inside L1 for all hardware threads of a core.
const VecLen = 1024

// Daxpy performs one x += a*y vector update per countdown step. It measures
// floating point pipeline interference rather than integer issue.
type Daxpy struct {
	a  float64
	dx []float64
	dy []float64
}

// NewDaxpy allocates and seeds the vectors. Each sampling thread needs its own
// instance.
func NewDaxpy() *Daxpy {
	d := &Daxpy{
		a:  1.0e-6,
		dx: make([]float64, VecLen),
		dy: make([]float64, VecLen),
	}
	for i := range d.dx {
		d.dx[i] = 0.3141592654
		d.dy[i] = 0.271828182845904523536
	}
	return d
}

// Name returns the primitive name.
func (d *Daxpy) Name() string { return "daxpy" }

// Countdown runs one vector update per step.
func (d *Daxpy) Countdown(c int64) int64 {
	for ; c < 0; c++ {
		daxpy(d.a, d.dx, d.dy)
	}
	return c
}

// Sum returns the sum of x; it keeps the vector live for tests.
func (d *Daxpy) Sum() float64 {
	var s float64
	for _, v := range d.dx {
		s += v
	}
	return s
}

//go:noinline
func daxpy(a float64, dx, dy []float64) {
	dy = dy[:len(dx)]
	for k := range dx {
		dx[k] += a * dy[k]
	}
}
