// Package calibrate measures the timers and work primitives of this build so
// that quantum sizes can be chosen before a real run.
package calibrate

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/ftq/pkg/timer"
	"github.com/danpilch/ftq/pkg/work"
)

// Options configures a calibration run.
type Options struct {
	Iterations int           // timed countdowns per primitive
	Warmup     int           // untimed countdowns per primitive
	Bits       int           // countdown length is 1<<Bits steps
	Reads      int           // back-to-back reads per timer
	Window     time.Duration // spin used to estimate unreported timer frequencies
}

// DefaultOptions returns sensible calibration defaults.
func DefaultOptions() Options {
	return Options{
		Iterations: 20,
		Warmup:     3,
		Bits:       20,
		Reads:      10000,
		Window:     20 * time.Millisecond,
	}
}

// TimerResult describes the cost of reading one timer.
type TimerResult struct {
	Name        string
	FrequencyHz uint64
	// Estimated is true when FrequencyHz was measured against the wall
	// clock because the hardware does not report it.
	Estimated bool
	Min       uint64 // ticks between back-to-back reads
	P50       uint64
	P99       uint64
}

// PrimitiveResult describes the cost of one countdown of 1<<Bits steps.
type PrimitiveResult struct {
	Primitive string
	Steps     uint64
	P50       uint64 // ticks of the reference clock
	P95       uint64
	P99       uint64
	NsPerStep float64
}

// Report is the outcome of a calibration run.
type Report struct {
	Clock      string
	Timers     []TimerResult
	Primitives []PrimitiveResult
}

var (
	calTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	calHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	calDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Run measures every available timer, then every registered primitive
// against clock.
func Run(clock timer.Source, opts Options) (Report, error) {
	if opts.Iterations < 1 || opts.Reads < 2 {
		return Report{}, fmt.Errorf("calibration needs at least 1 iteration and 2 timer reads")
	}
	if opts.Bits < 1 || opts.Bits > 62 {
		return Report{}, fmt.Errorf("countdown bits %d out of range [1, 62]", opts.Bits)
	}

	rep := Report{Clock: clock.Name}
	for _, src := range timer.Available() {
		rep.Timers = append(rep.Timers, measureTimer(src, opts.Reads, opts.Window))
	}

	for _, name := range work.Names() {
		prim, err := work.Lookup(name)
		if err != nil {
			return Report{}, err
		}
		rep.Primitives = append(rep.Primitives, measurePrimitive(clock, prim, opts))
	}
	return rep, nil
}

func measureTimer(src timer.Source, reads int, window time.Duration) TimerResult {
	deltas := make([]uint64, reads-1)
	prev := src.Now()
	for i := range deltas {
		t := src.Now()
		deltas[i] = t - prev
		prev = t
	}
	slices.Sort(deltas)
	res := TimerResult{
		Name:        src.Name,
		FrequencyHz: src.FrequencyHz,
		Min:         deltas[0],
		P50:         percentile(deltas, 0.50),
		P99:         percentile(deltas, 0.99),
	}
	if res.FrequencyHz == 0 && window > 0 {
		res.FrequencyHz = estimateFrequency(src, window)
		res.Estimated = true
	}
	return res
}

// estimateFrequency spins for window and scales the ticks counted by the
// wall time that actually passed.
func estimateFrequency(src timer.Source, window time.Duration) uint64 {
	start := time.Now()
	t0 := src.Now()
	for time.Since(start) < window {
	}
	ticks := src.Now() - t0
	elapsed := time.Since(start)
	return uint64(float64(ticks) / elapsed.Seconds())
}

func measurePrimitive(clock timer.Source, prim work.Primitive, opts Options) PrimitiveResult {
	steps := uint64(1) << opts.Bits
	wl := -int64(steps)
	for i := 0; i < opts.Warmup; i++ {
		prim.Countdown(wl)
	}

	ticks := make([]uint64, opts.Iterations)
	var wall time.Duration
	for i := range ticks {
		start := time.Now()
		tick := clock.Now()
		prim.Countdown(wl)
		ticks[i] = clock.Now() - tick
		wall += time.Since(start)
	}
	slices.Sort(ticks)

	return PrimitiveResult{
		Primitive: prim.Name(),
		Steps:     steps,
		P50:       percentile(ticks, 0.50),
		P95:       percentile(ticks, 0.95),
		P99:       percentile(ticks, 0.99),
		NsPerStep: float64(wall.Nanoseconds()) / float64(opts.Iterations) / float64(steps),
	}
}

// Render outputs a styled calibration report.
func Render(w io.Writer, rep Report) {
	fmt.Fprintln(w, calTitle.Render("Timers"))
	fmt.Fprintln(w, calDim.Render(strings.Repeat("═", 70)))
	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		calHeader.Render("TIMER       "),
		calHeader.Render("FREQUENCY     "),
		calHeader.Render("MIN     "),
		calHeader.Render("P50     "),
		calHeader.Render("P99     "))
	fmt.Fprintln(w, "  "+calDim.Render(strings.Repeat("─", 70)))
	for _, t := range rep.Timers {
		freq := "unknown"
		if t.FrequencyHz > 0 {
			freq = fmt.Sprintf("%.3f MHz", float64(t.FrequencyHz)/1e6)
			if t.Estimated {
				freq = "~" + freq
			}
		}
		fmt.Fprintf(w, "  %-14s %-16s %-10d %-10d %d\n", t.Name, freq, t.Min, t.P50, t.P99)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, calTitle.Render(fmt.Sprintf("Work primitives (ticks of %s)", rep.Clock)))
	fmt.Fprintln(w, calDim.Render(strings.Repeat("═", 70)))
	fmt.Fprintf(w, "  %s %s %s %s %s %s\n",
		calHeader.Render("PRIMITIVE   "),
		calHeader.Render("STEPS     "),
		calHeader.Render("P50       "),
		calHeader.Render("P95       "),
		calHeader.Render("P99       "),
		calHeader.Render("NS/STEP"))
	fmt.Fprintln(w, "  "+calDim.Render(strings.Repeat("─", 70)))
	for _, p := range rep.Primitives {
		fmt.Fprintf(w, "  %-14s %-12d %-12d %-12d %-12d %.3f\n",
			p.Primitive, p.Steps, p.P50, p.P95, p.P99, p.NsPerStep)
	}
}

func percentile(sorted []uint64, p float64) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
