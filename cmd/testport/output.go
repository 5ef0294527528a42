package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sarchlab/testport/harness"
)

const (
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

// colorEnabled resolves the color mode for w. In auto mode only a terminal
// gets colors.
func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}

	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func paint(s, color string, enabled bool) string {
	if !enabled {
		return s
	}
	return color + s + ansiReset
}

// displayLabel folds narration text onto one line.
func displayLabel(s string) string {
	s = strings.TrimRight(s, "\r\n")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\t", " ")
}

func writeLine(w io.Writer, prefix, label string) {
	if label == "" {
		fmt.Fprintln(w, prefix)
		return
	}
	fmt.Fprintf(w, "%s %s\n", prefix, label)
}

func outputText(w io.Writer, result RunResult, color bool) {
	for _, p := range result.Programs {
		fmt.Fprintf(w, "Running Test: %s ...\n", p.Name)

		for _, e := range p.Report.Events {
			label := displayLabel(e.Label)
			switch e.Command {
			case harness.StartRun:
				writeLine(w, "RUN", label)
			case harness.StartSubtest:
				writeLine(w, "  SUBTEST", label)
			case harness.SubtestPass:
				writeLine(w, "    "+paint("PASS", ansiGreen, color), label)
			case harness.SubtestFail:
				writeLine(w, "    "+paint("FAIL", ansiRed, color), label)
			case harness.EndRun:
				writeLine(w, "END", label)
			}
		}

		for _, n := range p.Report.Notes {
			writeLine(w, "NOTE", displayLabel(n))
		}
		for _, v := range p.Report.Violations {
			writeLine(w, "VIOLATION", v)
		}
		if p.Error != "" {
			writeLine(w, "ERROR", p.Error)
		}

		fmt.Fprintf(w, "---------- Total Steps: %d -----------\n", p.Steps)
	}

	fmt.Fprintf(w, "\nPrograms: %d  Subtests: %d  Passed: %d  Failed: %d  Errors: %d\n",
		len(result.Programs), result.Subtests, result.Passed, result.Failed, result.Errors)
	if result.Failed > 0 {
		fmt.Fprintf(w, "%d failures\n", result.Failed)
	}
}

func outputJSON(w io.Writer, result RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
