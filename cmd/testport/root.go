package main

import (
	goflag "flag"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/testport/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Color      string // "auto" | "always" | "never"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidColors defines the allowed color modes.
var ValidColors = []string{"auto", "always", "never"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "testport",
		Short: "Run instrumented test programs on a simulated target",
		Long: `testport runs Lua test programs on a simulated target whose
test port (a command register and an output register) is watched by an
observer. Each program reports its run, subtests and checks through the
port; testport prints what was observed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// glog refuses to honour its flags until the Go flag set is parsed.
			if !goflag.Parsed() {
				_ = goflag.CommandLine.Parse(nil)
			}
			if !contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if !contains(ValidColors, opts.Color) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid color %q: must be one of %v", opts.Color, ValidColors))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Color, "color", "auto", "color PASS/FAIL (auto|always|never)")
	cmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// loadConfig returns the configuration file named by --config, or the
// defaults.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigPath == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cannot load configuration", err)
	}
	return cfg, nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
