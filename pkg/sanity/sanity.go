// Package sanity checks a finished run against the properties every valid
// series must have. Failures are reported, not fatal: the data is still
// written so it can be inspected.
package sanity

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/ftq/pkg/buffer"
	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/coordinator"
)

// Result holds the outcome of one check.
type Result struct {
	Check   string `json:"check"`
	Thread  int    `json:"thread"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// Report is the outcome of all checks on a run.
type Report struct {
	Results []Result `json:"results"`
}

// Failed returns the checks that did not pass.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every check passed.
func (r Report) OK() bool { return len(r.Failed()) == 0 }

// Check runs every check on res. Failed checks are logged as warnings when
// log is non-nil.
func Check(res *coordinator.Result, log *logrus.Logger) Report {
	var rep Report
	cfg := res.Config
	for t := 0; t < res.Buffer.Threads(); t++ {
		s := res.Buffer.Series(t)
		rep.Results = append(rep.Results, checkCount(t, cfg, s, res.Threads))
		if cfg.Mode == config.TimeQuantum {
			rep.Results = append(rep.Results, checkIntervals(t, s, cfg.Quantum()))
		} else {
			rep.Results = append(rep.Results, checkElapsed(t, s))
		}
	}

	if log != nil {
		for _, f := range rep.Failed() {
			log.WithFields(logrus.Fields{
				"check":  f.Check,
				"thread": f.Thread,
			}).Warn(f.Details)
		}
	}
	return rep
}

func checkCount(t int, cfg config.Config, s buffer.Series, reports []coordinator.ThreadReport) Result {
	r := Result{Check: "sample count", Thread: t}
	taken := s.Len()
	if t < len(reports) {
		taken = reports[t].Samples
	}
	switch {
	case s.Len() != cfg.Samples:
		r.Details = fmt.Sprintf("series holds %d samples, want %d", s.Len(), cfg.Samples)
	case taken != cfg.Samples:
		r.Details = fmt.Sprintf("thread took %d samples, want %d", taken, cfg.Samples)
	default:
		r.Passed = true
		r.Details = fmt.Sprintf("%d samples", taken)
	}
	return r
}

// checkIntervals verifies that interval starts never go backwards and that
// no interval starts before the previous one ended.
func checkIntervals(t int, s buffer.Series, quantum uint64) Result {
	r := Result{Check: "interval order", Thread: t}
	mask := ^(quantum - 1)
	for i := 1; i < s.Len(); i++ {
		prev, cur := s.Field(i-1, 0), s.Field(i, 0)
		if cur < prev {
			r.Details = fmt.Sprintf("sample %d starts at %d, before sample %d at %d", i, cur, i-1, prev)
			return r
		}
		if end := (prev + quantum) & mask; cur < end {
			r.Details = fmt.Sprintf("sample %d starts at %d, inside interval ending at %d", i, cur, end)
			return r
		}
	}
	r.Passed = true
	r.Details = "interval starts non-decreasing"
	return r
}

func checkElapsed(t int, s buffer.Series) Result {
	r := Result{Check: "elapsed ticks", Thread: t}
	for i := 0; i < s.Len(); i++ {
		if s.Field(i, 0) == 0 {
			r.Details = fmt.Sprintf("sample %d took zero ticks", i)
			return r
		}
	}
	r.Passed = true
	r.Details = "all samples positive"
	return r
}
