// Package metrics exports run metadata in the Prometheus text format, for
// node_exporter's textfile collector. Only facts about the run are exported;
// the sample series stay in the data files.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danpilch/ftq/pkg/coordinator"
	"github.com/danpilch/ftq/pkg/sanity"
)

const namespace = "osnoise"

// Exporter holds the gauges of one run in a private registry.
type Exporter struct {
	reg *prometheus.Registry

	samples     *prometheus.GaugeVec
	pinned      *prometheus.GaugeVec
	involuntary *prometheus.GaugeVec
	voluntary   *prometheus.GaugeVec
	threadSecs  *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	quantum     *prometheus.GaugeVec
	overhead    *prometheus.GaugeVec
	failures    *prometheus.GaugeVec
	lastRun     *prometheus.GaugeVec
}

// New creates an exporter with its own registry.
func New() *Exporter {
	threadLabels := []string{"mode", "thread"}
	runLabels := []string{"mode", "timer", "primitive"}
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "thread_samples",
			Help:      "Samples recorded by each sampling thread",
		}, threadLabels),
		pinned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "thread_pinned",
			Help:      "1 if the sampling thread was pinned to its CPU, 0 if it ran unpinned",
		}, threadLabels),
		involuntary: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "thread_involuntary_context_switches",
			Help:      "Involuntary context switches of each sampling thread during the run",
		}, threadLabels),
		voluntary: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "thread_voluntary_context_switches",
			Help:      "Voluntary context switches of each sampling thread during the run",
		}, threadLabels),
		threadSecs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "thread_duration_seconds",
			Help:      "Wall time each sampling thread spent measuring",
		}, threadLabels),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the whole sampling run",
		}, runLabels),
		quantum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_quantum",
			Help:      "Quantum of the run: timer ticks per interval (time mode) or countdown steps per sample (work mode)",
		}, runLabels),
		overhead: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timer_overhead_ticks",
			Help:      "Minimum ticks between two back-to-back timer reads",
		}, runLabels),
		failures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_sanity_failures",
			Help:      "Sanity checks the recorded series failed",
		}, runLabels),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_start_timestamp_seconds",
			Help:      "Unix time the run started",
		}, runLabels),
	}
	e.reg.MustRegister(e.samples, e.pinned, e.involuntary, e.voluntary, e.threadSecs,
		e.duration, e.quantum, e.overhead, e.failures, e.lastRun)
	return e
}

// Observe sets every gauge from a finished run.
func (e *Exporter) Observe(res *coordinator.Result, rep sanity.Report) {
	mode := string(res.Config.Mode)
	run := prometheus.Labels{"mode": mode, "timer": res.Timer.Name, "primitive": res.Primitive}

	for _, th := range res.Threads {
		l := prometheus.Labels{"mode": mode, "thread": strconv.Itoa(th.Thread)}
		e.samples.With(l).Set(float64(th.Samples))
		e.pinned.With(l).Set(boolGauge(th.Pinned))
		e.threadSecs.With(l).Set(th.Duration.Seconds())
		if th.SwitchesKnown {
			e.involuntary.With(l).Set(float64(th.Switches.Involuntary))
			e.voluntary.With(l).Set(float64(th.Switches.Voluntary))
		}
	}

	e.duration.With(run).Set(res.Duration.Seconds())
	e.quantum.With(run).Set(float64(res.Config.Quantum()))
	e.failures.With(run).Set(float64(len(rep.Failed())))
	if !res.Started.IsZero() {
		e.lastRun.With(run).Set(float64(res.Started.UnixNano()) / 1e9)
	}
	if res.Timer.Now != nil {
		e.overhead.With(run).Set(float64(res.Timer.Overhead(1000)))
	}
}

// WriteTextfile writes the gauges to path atomically.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.reg); err != nil {
		return fmt.Errorf("cannot write metrics textfile: %w", err)
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
