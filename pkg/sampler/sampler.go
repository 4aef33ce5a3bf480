// Package sampler implements the per-thread measurement loop.
//
// A Core moves through WarmUp, SteadyState and Done exactly once. Both
// measuring phases run the same loop and write into the thread's own buffer
// region; warm-up samples are overwritten by the steady-state pass. The loops
// never allocate, lock or log.
package sampler

import (
	"fmt"

	"github.com/danpilch/ftq/pkg/buffer"
	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/timer"
	"github.com/danpilch/ftq/pkg/work"
)

// Phase is a state of the sampling core.
type Phase int

const (
	WarmUp Phase = iota
	SteadyState
	Done
)

func (p Phase) String() string {
	switch p {
	case WarmUp:
		return "warmup"
	case SteadyState:
		return "steady"
	case Done:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Core holds everything one sampling thread needs. It is read-only while the
// thread runs.
type Core struct {
	Mode      config.Mode
	Quantum   uint64 // power of two: ticks (time mode) or countdown steps (work mode)
	Warmup    int
	Unit      int64 // time mode: countdown steps per clock check
	WithStart bool  // work mode: store the start tick after the elapsed ticks
	Clock     timer.Source
	Work      work.Primitive
}

// NewCore builds a Core for cfg. Each thread needs its own Core because some
// primitives carry per-thread state.
func NewCore(cfg config.Config, clock timer.Source, prim work.Primitive) Core {
	return Core{
		Mode:      cfg.Mode,
		Quantum:   cfg.Quantum(),
		Warmup:    cfg.Warmup,
		Unit:      cfg.Unit,
		WithStart: cfg.WithStart,
		Clock:     clock,
		Work:      prim,
	}
}

// Stats counts the samples taken in each measuring phase.
type Stats struct {
	Warmup  int
	Samples int
}

// Stride returns the buffer cells each sample of this core occupies.
func (c Core) Stride() int {
	if c.Mode == config.TimeQuantum || c.WithStart {
		return 2
	}
	return 1
}

// Run takes region.Samples() samples into region after the warm-up pass.
func (c Core) Run(region buffer.Region) (Stats, error) {
	if err := c.check(region); err != nil {
		return Stats{}, err
	}

	var st Stats
	n := region.Samples()
	for phase := WarmUp; phase != Done; phase++ {
		switch phase {
		case WarmUp:
			st.Warmup = min(c.Warmup, n)
			c.sample(region.Cells(), st.Warmup)
		case SteadyState:
			c.sample(region.Cells(), n)
			st.Samples = n
		}
	}
	return st, nil
}

func (c Core) check(region buffer.Region) error {
	if c.Quantum == 0 || c.Quantum&(c.Quantum-1) != 0 {
		return fmt.Errorf("quantum %d is not a power of two", c.Quantum)
	}
	if c.Clock.Now == nil {
		return fmt.Errorf("no clock configured")
	}
	if c.Work == nil {
		return fmt.Errorf("no work primitive configured")
	}
	if region.Stride() != c.Stride() {
		return fmt.Errorf("region stride %d, %s mode needs %d", region.Stride(), c.Mode, c.Stride())
	}
	if c.Mode == config.WorkQuantum && c.Quantum > 1<<62 {
		return fmt.Errorf("work quantum %d overflows the countdown", c.Quantum)
	}
	return nil
}

func (c Core) sample(cells []uint64, n int) {
	if n <= 0 {
		return
	}
	switch {
	case c.Mode == config.TimeQuantum:
		fixedTime(cells, n, c.Clock.Now, c.Work, c.Quantum, c.Unit)
	case c.WithStart:
		fixedWorkStart(cells, n, c.Clock.Now, c.Work, c.Quantum)
	default:
		fixedWork(cells, n, c.Clock.Now, c.Work, c.Quantum)
	}
}

// fixedTime records (interval start, work units) pairs. An interval ends at
// start + quantum rounded down to a multiple of quantum. The next start is
// read fresh rather than chained to the previous end, so consecutive
// intervals can leave a small unmeasured gap between them.
func fixedTime(cells []uint64, n int, now func() uint64, p work.Primitive, quantum uint64, unit int64) {
	_ = cells[2*n-1]
	mask := ^(quantum - 1)
	step := -unit
	for done := 0; done < n; done++ {
		last := now()
		end := (last + quantum) & mask
		var count uint64
		for t := last; t < end; t = now() {
			p.Countdown(step)
			count++
		}
		cells[2*done] = last
		cells[2*done+1] = count
	}
}

// fixedWork records the ticks taken by one countdown of quantum steps.
func fixedWork(cells []uint64, n int, now func() uint64, p work.Primitive, quantum uint64) {
	_ = cells[n-1]
	wl := -int64(quantum)
	for done := 0; done < n; done++ {
		tick := now()
		p.Countdown(wl)
		tock := now()
		cells[done] = tock - tick
	}
}

// fixedWorkStart is fixedWork that also keeps the start tick.
func fixedWorkStart(cells []uint64, n int, now func() uint64, p work.Primitive, quantum uint64) {
	_ = cells[2*n-1]
	wl := -int64(quantum)
	for done := 0; done < n; done++ {
		tick := now()
		p.Countdown(wl)
		tock := now()
		cells[2*done] = tock - tick
		cells[2*done+1] = tick
	}
}
