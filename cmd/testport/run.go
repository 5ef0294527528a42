package main

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/sarchlab/testport/config"
	"github.com/sarchlab/testport/harness"
	"github.com/sarchlab/testport/observer"
	"github.com/sarchlab/testport/script"
	"github.com/sarchlab/testport/target"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Base     uint64
	Budget   uint64
	MaxSteps uint64
	Brackets bool
	Timeout  time.Duration

	// newRunID overrides run ID generation.
	newRunID func() string
}

// ProgramResult holds the outcome of one program.
type ProgramResult struct {
	Name   string          `json:"name"`
	Steps  uint64          `json:"steps"`
	Report observer.Report `json:"report"`
	Error  string          `json:"error,omitempty"`
}

// RunResult holds the outcome of all programs.
type RunResult struct {
	Programs []ProgramResult `json:"programs"`
	Subtests int             `json:"subtests"`
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
	Errors   int             `json:"errors"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program.lua>...",
		Short: "Run test programs on the simulated target",
		Long: `Run each program on a fresh simulated target and report the
events seen on the test port.

A program must write START_RUN within the start budget; after that it runs
until END_RUN. Failures are summed over all programs.

Exit codes:
  0 - All programs completed and all checks passed
  1 - A check failed or a program did not complete its run
  2 - Command error (invalid flags, configuration or paths)

Examples:
  testport run arith.lua
  testport run --brackets --budget 5000 *.lua
  testport run --config port.yaml --format json arith.lua`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.effectiveConfig(cmd)
			if err != nil {
				return err
			}
			return runPrograms(opts, cfg, args, cmd)
		},
	}

	defaults := config.DefaultConfig()
	cmd.Flags().Uint64Var(&opts.Base, "base", defaults.BaseAddress, "address of the command register")
	cmd.Flags().Uint64Var(&opts.Budget, "budget", defaults.StartBudget, "steps allowed before START_RUN")
	cmd.Flags().Uint64Var(&opts.MaxSteps, "max-steps", defaults.MaxSteps, "step ceiling (0 = no limit)")
	cmd.Flags().BoolVar(&opts.Brackets, "brackets", false, "use the bracketed wire revision")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", defaults.Timeout, "wall-clock limit per program (0 = none)")

	return cmd
}

// effectiveConfig applies explicitly set flags on top of the configuration.
func (o *RunOptions) effectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base") {
		cfg.BaseAddress = o.Base
	}
	if flags.Changed("budget") {
		cfg.StartBudget = o.Budget
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = o.MaxSteps
	}
	if flags.Changed("brackets") {
		cfg.Revision = config.RevisionClassic
		if o.Brackets {
			cfg.Revision = config.RevisionBracketed
		}
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.Timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	return cfg, nil
}

func runPrograms(opts *RunOptions, cfg *config.Config, paths []string, cmd *cobra.Command) error {
	result := RunResult{
		Programs: make([]ProgramResult, 0, len(paths)),
	}

	for _, path := range paths {
		pr := runProgram(opts, cfg, path)
		result.Programs = append(result.Programs, pr)

		result.Subtests += pr.Report.Subtests
		result.Passed += pr.Report.Passed
		result.Failed += pr.Report.Failed
		if pr.Error != "" {
			result.Errors++
		}
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := outputJSON(w, result); err != nil {
			return err
		}
	} else {
		outputText(w, result, colorEnabled(opts.Color, w))
	}

	switch {
	case result.Errors > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d program(s) did not complete", result.Errors))
	case result.Failed > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d failure(s)", result.Failed))
	}
	return nil
}

// runProgram runs one program on a fresh target.
func runProgram(opts *RunOptions, cfg *config.Config, path string) ProgramResult {
	glog.Infof("Running Test: %s ...", path)

	prog, err := script.Load(path)
	if err != nil {
		return ProgramResult{Name: path, Error: err.Error()}
	}
	defer prog.Close()

	periphOpts := []observer.Option{observer.WithHook(observer.LogHook{})}
	if opts.newRunID != nil {
		periphOpts = append(periphOpts, observer.WithRunIDs(opts.newRunID))
	}
	periph := observer.New(cfg.BaseAddress, periphOpts...)

	bus := target.NewBus()
	bus.MapIO(periph.Base(), periph.End(), periph)

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var harnessOpts []harness.Option
	if cfg.Brackets() {
		harnessOpts = append(harnessOpts, harness.WithExecuteBrackets())
	}

	if err := prog.Bind(ctx, bus, cfg.BaseAddress, harnessOpts...); err != nil {
		return ProgramResult{Name: prog.Name(), Error: err.Error()}
	}

	runner := target.NewRunner(periph,
		target.WithStartBudget(cfg.StartBudget),
		target.WithMaxSteps(cfg.MaxSteps),
	)
	res, err := runner.Run(prog)

	pr := ProgramResult{
		Name:   prog.Name(),
		Steps:  res.Steps,
		Report: periph.Report(),
	}
	if err != nil {
		glog.Errorf("%s: %v", prog.Name(), err)
		pr.Error = err.Error()
	}

	return pr
}
