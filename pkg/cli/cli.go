// Package cli builds the ftq and fwq commands.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/ftq/pkg/buffer"
	"github.com/danpilch/ftq/pkg/calibrate"
	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/coordinator"
	"github.com/danpilch/ftq/pkg/host"
	"github.com/danpilch/ftq/pkg/manifest"
	"github.com/danpilch/ftq/pkg/metrics"
	"github.com/danpilch/ftq/pkg/output"
	"github.com/danpilch/ftq/pkg/sanity"
	"github.com/danpilch/ftq/pkg/timer"
	"github.com/danpilch/ftq/pkg/work"
)

type options struct {
	cfg      config.Config
	stdout   bool
	logLevel string
	quiet    bool
}

// NewFTQCommand returns the fixed time quantum command.
func NewFTQCommand() *cobra.Command {
	cmd, o := newCommand(config.TimeQuantum)
	cmd.Use = "ftq"
	cmd.Short = "Fixed time quantum OS noise benchmark"
	cmd.Long = `ftq counts how much work fits into each of a series of fixed-length
intervals. Each sample is the interval start tick and the number of work
units completed before the interval boundary. Dips in the count series show
time lost to the operating system.`

	f := cmd.Flags()
	f.IntVarP(&o.cfg.Bits, "interval", "i", config.DefaultBits, "interval length as a power of two of timer ticks")
	f.Int64Var(&o.cfg.Unit, "unit", 1, "countdown steps per work unit")
	return cmd
}

// NewFWQCommand returns the fixed work quantum command.
func NewFWQCommand() *cobra.Command {
	cmd, o := newCommand(config.WorkQuantum)
	cmd.Use = "fwq"
	cmd.Short = "Fixed work quantum OS noise benchmark"
	cmd.Long = `fwq times a fixed amount of work over and over. Each sample is the
number of timer ticks one work quantum took. Spikes in the series show time
lost to the operating system.`

	f := cmd.Flags()
	f.IntVarP(&o.cfg.Bits, "work", "w", config.DefaultBits, "work quantum as a power of two of countdown steps")
	f.BoolVar(&o.cfg.WithStart, "with-start", false, "also record the start tick of every sample")
	return cmd
}

func newCommand(mode config.Mode) (*cobra.Command, *options) {
	o := &options{cfg: config.Defaults(mode)}
	cmd := &cobra.Command{
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(o.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg := o.cfg
			cfg.Multithreaded = cmd.Flags().Changed("threads")
			if o.stdout {
				cfg.Output = config.OutputStdout
			}
			return run(cfg, o.quiet, cmd.OutOrStdout(), cmd.ErrOrStderr(), log)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&o.cfg.Samples, "numsamples", "n", config.DefaultSamples, "number of samples per thread")
	f.IntVarP(&o.cfg.Threads, "threads", "t", 1, "sampling threads, each pinned to its own CPU")
	f.StringVarP(&o.cfg.Prefix, "outname", "o", o.cfg.Prefix, "output file name prefix")
	f.BoolVarP(&o.stdout, "stdout", "s", false, "write thread 0 samples to stdout instead of files")
	f.StringVar(&o.cfg.Dir, "dir", o.cfg.Dir, "directory for output files")
	f.StringVar(&o.cfg.Primitive, "primitive", "", "work primitive ("+strings.Join(work.Names(), ", ")+")")
	f.IntVar(&o.cfg.Warmup, "warmup", config.DefaultWarmup, "untimed samples taken before measuring")
	f.BoolVar(&o.cfg.HoldGC, "hold-gc", true, "disable the garbage collector while sampling")
	f.BoolVar(&o.cfg.Manifest, "manifest", false, "write <outname>_manifest.json describing the run")
	f.StringVar(&o.cfg.Textfile, "textfile", "", "write run metadata in Prometheus text format to this path")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "do not print the run summary")

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.cfg.Timer, "timer", "", "timer backend ("+timerNames()+")")
	pf.StringVar(&o.logLevel, "log-level", "warning", "log level (debug, info, warning, error)")

	cmd.AddCommand(newCalibrateCommand(o))
	return cmd, o
}

func newCalibrateCommand(o *options) *cobra.Command {
	opts := calibrate.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Measure timer overhead and work primitive cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(o.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			clock, err := timer.Lookup(o.cfg.Timer)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"timer": clock.Name, "bits": opts.Bits}).Info("Calibrating")
			rep, err := calibrate.Run(clock, opts)
			if err != nil {
				return err
			}
			calibrate.Render(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Iterations, "iterations", opts.Iterations, "timed countdowns per primitive")
	f.IntVar(&opts.Bits, "bits", opts.Bits, "countdown length as a power of two")
	return cmd
}

func newLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	return log, nil
}

func timerNames() string {
	var names []string
	for _, s := range timer.Available() {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}

// run takes one measurement end to end. Nothing is written unless every
// thread finished.
func run(cfg config.Config, quiet bool, stdout, stderr io.Writer, log *logrus.Logger) error {
	cfg.Normalize(log)
	if err := cfg.Validate(coordinator.Capabilities()); err != nil {
		return err
	}

	clock, err := timer.Lookup(cfg.Timer)
	if err != nil {
		return err
	}
	sink, err := output.New(cfg, stdout)
	if err != nil {
		return err
	}
	buf, err := buffer.New(cfg.Threads, cfg.Samples, cfg.Stride())
	if err != nil {
		return err
	}

	var snap *host.Snapshot
	if cfg.Manifest {
		if snap, err = host.Take(); err != nil {
			log.WithError(err).Warn("Cannot read host state")
		}
	}

	res, err := coordinator.New(cfg, clock, log).Run(buf)
	if err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}
	rep := sanity.Check(res, log)

	if err := sink.Write(res); err != nil {
		return err
	}
	if cfg.Manifest {
		m := manifest.New(res, rep)
		m.Host = snap
		path, err := m.Save()
		if err != nil {
			return err
		}
		log.WithField("path", path).Info("Wrote manifest")
	}
	if cfg.Textfile != "" {
		e := metrics.New()
		e.Observe(res, rep)
		if err := e.WriteTextfile(cfg.Textfile); err != nil {
			return err
		}
		log.WithField("path", cfg.Textfile).Info("Wrote metrics textfile")
	}

	if quiet {
		return nil
	}
	return output.RenderSummary(stderr, res, rep)
}
