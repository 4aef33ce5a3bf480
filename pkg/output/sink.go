// Package output writes finished sample series and renders the run summary.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/danpilch/ftq/pkg/buffer"
	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/coordinator"
)

// Sink receives a finished run.
type Sink interface {
	Write(res *coordinator.Result) error
}

// New returns the sink selected by cfg.Output. Stream output goes to w.
func New(cfg config.Config, w io.Writer) (Sink, error) {
	switch cfg.Output {
	case config.OutputFiles:
		return FileSink{}, nil
	case config.OutputStdout:
		return StreamSink{W: w}, nil
	default:
		return nil, fmt.Errorf("unknown output %q", cfg.Output)
	}
}

// Columns names the per-sample fields in buffer order. They double as the
// file name suffixes.
func Columns(cfg config.Config) []string {
	if cfg.Mode == config.TimeQuantum {
		return []string{"times", "counts"}
	}
	if cfg.WithStart {
		return []string{"times", "starts"}
	}
	return []string{"times"}
}

// FileName returns the file holding column col of thread t.
func FileName(cfg config.Config, t int, col string) string {
	return filepath.Join(cfg.Dir, fmt.Sprintf("%s_%d_%s.dat", cfg.Prefix, t, col))
}

// FileSink writes one file per thread and column, one decimal per line.
type FileSink struct{}

// Write creates or truncates every output file of res.
func (FileSink) Write(res *coordinator.Result) error {
	cols := Columns(res.Config)
	for t := 0; t < res.Buffer.Threads(); t++ {
		s := res.Buffer.Series(t)
		for f, col := range cols {
			if err := writeColumn(FileName(res.Config, t, col), s, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeColumn(name string, s buffer.Series, f int) (err error) {
	fp, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cannot create output file: %w", err)
	}
	defer func() {
		if cerr := fp.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("cannot close %s: %w", name, cerr)
		}
	}()

	w := bufio.NewWriter(fp)
	var line []byte
	for i := 0; i < s.Len(); i++ {
		line = strconv.AppendUint(line[:0], s.Field(i, f), 10)
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("cannot write %s: %w", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("cannot write %s: %w", name, err)
	}
	return nil
}

// StreamSink writes thread 0's samples to W, one sample per line with
// fields separated by a space.
type StreamSink struct {
	W io.Writer
}

// Write streams thread 0 of res.
func (s StreamSink) Write(res *coordinator.Result) error {
	series := res.Buffer.Series(0)
	w := bufio.NewWriter(s.W)
	var line []byte
	for i := 0; i < series.Len(); i++ {
		line = line[:0]
		for f := 0; f < series.Stride(); f++ {
			if f > 0 {
				line = append(line, ' ')
			}
			line = strconv.AppendUint(line, series.Field(i, f), 10)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("cannot write samples: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("cannot write samples: %w", err)
	}
	return nil
}
