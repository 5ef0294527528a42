// Package harness implements the on-target side of the test port: a small
// state machine that narrates a test run through an output register and
// signals each transition by writing a code to a command register.
package harness

import "fmt"

// Command is a value written to the command register.
type Command uint8

// Command register codes. The values are the wire contract with the
// observer and must not change.
const (
	// StartRun marks the beginning of the run. It must be the first
	// command written by the program.
	StartRun Command = 0x10
	// EndRun marks the end of the run. It must be the last command.
	EndRun Command = 0x11
	// StartSubtest opens a subtest.
	StartSubtest Command = 0x20
	// SubtestPass reports a successful check.
	SubtestPass Command = 0x21
	// SubtestFail reports a failed check.
	SubtestFail Command = 0x22
	// SubtestExecuting opens the computation window of a subtest.
	SubtestExecuting Command = 0x2E
	// SubtestExecutingDone closes the computation window of a subtest.
	SubtestExecutingDone Command = 0x2F
)

var commandNames = map[Command]string{
	StartRun:             "START_RUN",
	EndRun:               "END_RUN",
	StartSubtest:         "START_SUBTEST",
	SubtestPass:          "SUBTEST_PASS",
	SubtestFail:          "SUBTEST_FAIL",
	SubtestExecuting:     "SUBTEST_EXECUTING",
	SubtestExecutingDone: "SUBTEST_EXECUTING_DONE",
}

// Valid reports whether c belongs to the command enumeration.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// IsOutcome reports whether c is a pass or fail code.
func (c Command) IsOutcome() bool {
	return c == SubtestPass || c == SubtestFail
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(c))
}

// MarshalText encodes c by name so reports read naturally.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a command name written by MarshalText.
func (c *Command) UnmarshalText(text []byte) error {
	for cmd, name := range commandNames {
		if name == string(text) {
			*c = cmd
			return nil
		}
	}
	return fmt.Errorf("unknown command %q", text)
}
