package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/choishiam0906/govhelper/internal/service/batch"
	"github.com/fatih/color"
)

// Colors used for CLI output. They honour NO_COLOR and --no-color.
var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

// initColors disables color output when noColor is set.
func initColors(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

func successf(w io.Writer, format string, args ...any) {
	_, _ = green.Fprintf(w, "✓ "+format+"\n", args...)
}

func warningf(w io.Writer, format string, args ...any) {
	_, _ = yellow.Fprintf(w, "⚠ "+format+"\n", args...)
}

func errorf(w io.Writer, format string, args ...any) {
	_, _ = red.Fprintf(w, "✗ "+format+"\n", args...)
}

func infof(w io.Writer, format string, args ...any) {
	_, _ = cyan.Fprintf(w, "ℹ "+format+"\n", args...)
}

func header(w io.Writer, text string) {
	_, _ = bold.Fprintln(w, text)
	_, _ = fmt.Fprintln(w, strings.Repeat("=", len([]rune(text))))
}

// printItem reports one processed announcement as it finishes.
func printItem(w io.Writer) func(batch.ItemResult) {
	return func(r batch.ItemResult) {
		title := dim.Sprint(truncateTitle(r.Title, 40))
		switch r.Outcome {
		case batch.OutcomeSucceeded:
			successf(w, "%s %s", title, r.Detail)
		case batch.OutcomeNotFound, batch.OutcomeSkipped, batch.OutcomeUnchanged:
			infof(w, "%s %s %s", title, r.Outcome, r.Detail)
		case batch.OutcomeFailed:
			if r.Err != nil {
				errorf(w, "%s %v", title, r.Err)
			} else {
				errorf(w, "%s %s", title, r.Detail)
			}
		default:
			warningf(w, "%s %s", title, r.Outcome)
		}
	}
}

// printSummary prints the totals of a batch run.
func printSummary(w io.Writer, s *batch.Summary) {
	_, _ = fmt.Fprintln(w)
	header(w, fmt.Sprintf("%s batch finished", s.Kind))
	row := func(label string, n int, c *color.Color) {
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", label, c.Sprint(n))
	}
	row("processed", s.Processed, cyan)
	row("succeeded", s.Succeeded, green)
	if s.Kind == batch.KindEvaluation {
		row("not found", s.NotFound, yellow)
	}
	if s.Kind == batch.KindEmbedding {
		row("unchanged", s.Unchanged, cyan)
	}
	row("skipped", s.Skipped, yellow)
	row("failed", s.Failed, red)
	_, _ = fmt.Fprintf(w, "  %-10s %s\n", "elapsed", dim.Sprint(s.Elapsed.Round(time.Millisecond)))
}

func truncateTitle(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
