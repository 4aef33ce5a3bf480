// Package coordinator runs one sampling core per requested thread and joins
// them.
//
// A single-threaded run happens inline on the calling goroutine. A
// multithreaded run pins the caller to CPU 0, starts one OS-thread-locked
// goroutine per remaining thread pinned to CPU i, and waits for all of them.
// Thread start and join are the only synchronization points; each thread
// writes only its own buffer region.
package coordinator

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/danpilch/ftq/pkg/affinity"
	"github.com/danpilch/ftq/pkg/buffer"
	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/sampler"
	"github.com/danpilch/ftq/pkg/timer"
	"github.com/danpilch/ftq/pkg/work"
)

// ThreadReport describes how one sampling thread ran.
type ThreadReport struct {
	Thread   int               `json:"thread"`
	CPU      int               `json:"cpu"` // -1 when unpinned
	Pinned   bool              `json:"pinned"`
	TID      int               `json:"tid"`
	Warmup   int               `json:"warmup"`
	Samples  int               `json:"samples"`
	Duration time.Duration     `json:"duration_ns"`
	Switches affinity.Switches `json:"switches"`
	// SwitchesKnown is false when the platform has no per-thread counters.
	SwitchesKnown bool `json:"switches_known"`
}

// Result is everything a finished run hands to the output sinks.
type Result struct {
	Config    config.Config
	Buffer    *buffer.Buffer
	Timer     timer.Source
	Primitive string
	Threads   []ThreadReport
	Started   time.Time
	Duration  time.Duration
}

// Coordinator owns the thread set of one run.
type Coordinator struct {
	cfg    config.Config
	clock  timer.Source
	logger *logrus.Logger
	pin    func(cpu int) (affinity.Restore, error)
}

// New creates a coordinator. A nil logger logs warnings to stderr.
func New(cfg config.Config, clock timer.Source, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Coordinator{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
		pin:    affinity.Pin,
	}
}

// Run fills buf and returns once every thread has finished. Any thread error
// fails the whole run; there are no partial results.
func (c *Coordinator) Run(buf *buffer.Buffer) (*Result, error) {
	cfg := c.cfg
	if buf.Threads() != cfg.Threads || buf.Samples() != cfg.Samples || buf.Stride() != cfg.Stride() {
		return nil, fmt.Errorf("buffer shape %dx%dx%d does not match configuration %dx%dx%d",
			buf.Threads(), buf.Samples(), buf.Stride(), cfg.Threads, cfg.Samples, cfg.Stride())
	}

	cores := make([]sampler.Core, cfg.Threads)
	var primName string
	for i := range cores {
		prim, err := work.Lookup(cfg.Primitive)
		if err != nil {
			return nil, err
		}
		primName = prim.Name()
		cores[i] = sampler.NewCore(cfg, c.clock, prim)
	}

	c.logger.WithFields(logrus.Fields{
		"mode":      cfg.Mode,
		"threads":   cfg.Threads,
		"samples":   cfg.Samples,
		"quantum":   cfg.Quantum(),
		"timer":     c.clock.Name,
		"primitive": primName,
	}).Info("Starting sampling")

	if cfg.HoldGC {
		runtime.GC()
		prev := debug.SetGCPercent(-1)
		defer debug.SetGCPercent(prev)
	}

	res := &Result{
		Config:    cfg,
		Buffer:    buf,
		Timer:     c.clock,
		Primitive: primName,
		Started:   time.Now(),
	}

	var err error
	if cfg.UseThreads() {
		res.Threads, err = c.runThreaded(cores, buf)
	} else {
		res.Threads, err = c.runInline(cores[0], buf)
	}
	res.Duration = time.Since(res.Started)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Coordinator) runInline(core sampler.Core, buf *buffer.Buffer) ([]ThreadReport, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rep, err := c.sample(0, core, buf.Region(0), false)
	if err != nil {
		return nil, err
	}
	return []ThreadReport{rep}, nil
}

func (c *Coordinator) runThreaded(cores []sampler.Core, buf *buffer.Buffer) ([]ThreadReport, error) {
	n := len(cores)
	if prev := runtime.GOMAXPROCS(0); prev < n {
		c.logger.WithFields(logrus.Fields{"from": prev, "to": n}).Info("Raising GOMAXPROCS for sampling threads")
		runtime.GOMAXPROCS(n)
		defer runtime.GOMAXPROCS(prev)
	}

	if !affinity.Supported {
		c.logger.WithField("threads", n).Warn(affinity.ErrUnsupported.Error() + "; threads run unpinned")
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	restore, pinned0 := c.bind(0)
	if restore != nil {
		defer func() {
			if err := restore(); err != nil {
				c.logger.WithError(err).Warn("Failed to restore CPU affinity of calling thread")
			}
		}()
	}

	reports := make([]ThreadReport, n)
	var g errgroup.Group
	for i := 1; i < n; i++ {
		c.logger.WithField("thread", i).Debug("Thread being created")
		g.Go(func() error {
			// The thread stays locked: it exits with the goroutine rather
			// than returning to the scheduler with a one-CPU mask.
			runtime.LockOSThread()
			_, ok := c.bind(i)
			rep, err := c.sample(i, cores[i], buf.Region(i), ok)
			reports[i] = rep
			return err
		})
	}

	rep, err := c.sample(0, cores[0], buf.Region(0), pinned0)
	reports[0] = rep
	if werr := g.Wait(); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// bind pins the calling thread to CPU i. Failure is logged and the thread
// runs unpinned.
func (c *Coordinator) bind(i int) (affinity.Restore, bool) {
	log := c.logger.WithFields(logrus.Fields{"thread": i, "cpu": i})
	if !affinity.Supported {
		log.Debug("Thread affinity not supported; running unpinned")
		return nil, false
	}
	if i >= runtime.NumCPU() {
		log.WithField("cpus", runtime.NumCPU()).Warn("No logical CPU for thread; running unpinned")
		return nil, false
	}
	restore, err := c.pin(i)
	if err != nil {
		log.WithError(err).Warn("Failed to set CPU affinity")
		return nil, false
	}
	log.Debug("Thread pinned")
	return restore, true
}

func (c *Coordinator) sample(i int, core sampler.Core, region buffer.Region, pinned bool) (ThreadReport, error) {
	rep := ThreadReport{Thread: i, CPU: -1, Pinned: pinned, TID: affinity.ThreadID()}
	if pinned {
		rep.CPU = i
	}

	before, swErr := affinity.ThreadSwitches()
	start := time.Now()
	st, err := core.Run(region)
	rep.Duration = time.Since(start)
	if err != nil {
		return rep, fmt.Errorf("thread %d: %w", i, err)
	}
	rep.Warmup, rep.Samples = st.Warmup, st.Samples

	if swErr == nil {
		if after, err := affinity.ThreadSwitches(); err == nil {
			rep.Switches = after.Sub(before)
			rep.SwitchesKnown = true
		}
	}

	c.logger.WithFields(logrus.Fields{
		"thread":      i,
		"samples":     rep.Samples,
		"duration":    rep.Duration,
		"involuntary": rep.Switches.Involuntary,
	}).Debug("Thread finished")
	return rep, nil
}
