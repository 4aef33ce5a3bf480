package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/danpilch/ftq/pkg/config"
	"github.com/danpilch/ftq/pkg/coordinator"
	"github.com/danpilch/ftq/pkg/sanity"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// RenderSummary describes how the run went: what was measured, where each
// thread ran, and whether the series passed the sanity checks. It says
// nothing about the measured values themselves.
func RenderSummary(w io.Writer, res *coordinator.Result, rep sanity.Report) error {
	cfg := res.Config
	name := "FTQ"
	quantum := fmt.Sprintf("%d ticks", cfg.Quantum())
	if cfg.Mode == config.WorkQuantum {
		name = "FWQ"
		quantum = fmt.Sprintf("%d steps", cfg.Quantum())
	}

	fmt.Fprintln(w, titleStyle.Render(name+" Run Summary"))
	fmt.Fprintln(w, strings.Repeat("═", 60))
	field := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label)), value)
	}
	field("Quantum", fmt.Sprintf("%s (2^%d)", quantum, cfg.Bits))
	field("Samples", strconv.Itoa(cfg.Samples))
	field("Timer", res.Timer.Name)
	field("Primitive", res.Primitive)
	field("Duration", res.Duration.Round(time.Millisecond).String())
	fmt.Fprintln(w)

	rows := make([][]string, len(res.Threads))
	for i, th := range res.Threads {
		cpu := "-"
		if th.Pinned {
			cpu = strconv.Itoa(th.CPU)
		}
		invol, vol := "n/a", "n/a"
		if th.SwitchesKnown {
			invol = strconv.FormatInt(th.Switches.Involuntary, 10)
			vol = strconv.FormatInt(th.Switches.Voluntary, 10)
		}
		rows[i] = []string{
			strconv.Itoa(th.Thread),
			cpu,
			strconv.Itoa(th.TID),
			strconv.Itoa(th.Samples),
			th.Duration.Round(time.Millisecond).String(),
			invol,
			vol,
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("THREAD", "CPU", "TID", "SAMPLES", "DURATION", "INVOLUNTARY", "VOLUNTARY").
		Rows(rows...)
	fmt.Fprintln(w, t)
	fmt.Fprintln(w)

	failed := rep.Failed()
	if len(failed) == 0 {
		_, err := fmt.Fprintln(w, okStyle.Render("All sanity checks passed"))
		return err
	}
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d sanity checks failed", len(failed))))
	for _, f := range failed {
		fmt.Fprintf(w, "  thread %d %s: %s\n", f.Thread, f.Check, f.Details)
	}
	return nil
}
