// Package observer provides the simulator side of the test port: a
// memory-mapped peripheral that decodes the command and output registers
// written by an instrumented program.
package observer

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/testport/harness"
)

// DefaultBase is the address of the command register. The output register
// follows at DefaultBase+1.
const DefaultBase uint64 = 0x01B0

// Register offsets from the base address.
const (
	OffsetCommand uint64 = 0
	OffsetTextOut uint64 = 1

	// span is the number of addresses claimed by the peripheral.
	span uint64 = 3
)

// HookPosCommand marks the decoding of a command. The hook item is an Event.
var HookPosCommand = &sim.HookPos{Name: "TestPort Command"}

// HookPosViolation marks a protocol violation. The hook item is the message.
var HookPosViolation = &sim.HookPos{Name: "TestPort Violation"}

// Peripheral decodes writes to the test port registers.
type Peripheral struct {
	sim.HookableBase

	base    uint64
	newID   func() string
	mode    harness.Command
	pending []byte
	open    bool
	report  Report
}

// Option is a functional option for configuring the Peripheral.
type Option func(*Peripheral)

// WithRunIDs sets the generator used for run IDs.
func WithRunIDs(gen func() string) Option {
	return func(p *Peripheral) {
		p.newID = gen
	}
}

// WithHook registers a hook on the peripheral.
func WithHook(hook sim.Hook) Option {
	return func(p *Peripheral) {
		p.AcceptHook(hook)
	}
}

// New creates a Peripheral mapped at base.
func New(base uint64, opts ...Option) *Peripheral {
	p := &Peripheral{
		base:  base,
		newID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.Reset()

	return p
}

// Base returns the address of the command register.
func (p *Peripheral) Base() uint64 {
	return p.base
}

// End returns the last address claimed by the peripheral.
func (p *Peripheral) End() uint64 {
	return p.base + span - 1
}

// Contains reports whether addr is handled by the peripheral.
func (p *Peripheral) Contains(addr uint64) bool {
	return addr >= p.base && addr <= p.End()
}

// Reset performs a power-up reset.
func (p *Peripheral) Reset() {
	p.mode = 0
	p.pending = nil
	p.open = false
	p.report = Report{Events: []Event{}}
}

// Mode returns the last value written to the command register.
func (p *Peripheral) Mode() harness.Command {
	return p.mode
}

// Started reports whether START_RUN has been seen.
func (p *Peripheral) Started() bool {
	return p.report.Started
}

// Ended reports whether END_RUN has been seen.
func (p *Peripheral) Ended() bool {
	return p.report.Ended
}

// Failures returns the number of failed checks so far.
func (p *Peripheral) Failures() int {
	return p.report.Failed
}

// Report returns a snapshot of what has been observed.
func (p *Peripheral) Report() Report {
	r := p.report
	r.Events = append(make([]Event, 0, len(p.report.Events)), p.report.Events...)
	r.Notes = append([]string(nil), p.report.Notes...)
	r.Violations = append([]string(nil), p.report.Violations...)
	r.Pending = string(p.pending)
	return r
}

// Port returns a harness port that writes straight into the peripheral.
func (p *Peripheral) Port() harness.Port {
	return harness.Port{
		Command: harness.RegisterFunc(func(v uint8) {
			p.Write(p.base+OffsetCommand, uint16(v), true)
		}),
		Output: harness.RegisterFunc(func(v uint8) {
			p.Write(p.base+OffsetTextOut, uint16(v), true)
		}),
	}
}

// Write handles a store to addr. The registers are byte wide; a word store
// is reported as an access error and its low byte is used.
func (p *Peripheral) Write(addr uint64, value uint16, byteMode bool) {
	if !byteMode {
		p.violation(fmt.Sprintf(
			"access error: word write 0x%04x at 0x%04x, expected byte access",
			value, addr))
	}

	switch addr - p.base {
	case OffsetCommand:
		p.command(harness.Command(value))
	case OffsetTextOut:
		glog.V(2).Infof("testport: text 0x%02x", uint8(value))
		p.pending = append(p.pending, uint8(value))
	}
}

// Read handles a load from addr. The registers are write-only and read as 0.
func (p *Peripheral) Read(addr uint64, byteMode bool) uint16 {
	if !byteMode {
		p.violation(fmt.Sprintf(
			"access error: word read at 0x%04x, expected byte access", addr))
	}
	return 0
}

func (p *Peripheral) command(c harness.Command) {
	glog.V(2).Infof("testport: command %s", c)

	if !c.Valid() {
		p.mode = c
		p.violation(fmt.Sprintf("unknown value 0x%02x written to test port", uint8(c)))
		return
	}

	switch {
	case p.report.Ended:
		p.violation(fmt.Sprintf("%s after END_RUN", c))
	case !p.report.Started && c != harness.StartRun:
		p.violation(fmt.Sprintf("%s before START_RUN", c))
	}

	p.mode = c

	switch c {
	case harness.SubtestExecuting:
		p.pending = nil
		return
	case harness.SubtestExecutingDone:
		if len(p.pending) > 0 {
			p.report.Notes = append(p.report.Notes, p.takeText())
		}
		return
	}

	label := p.takeText()

	switch c {
	case harness.StartRun:
		if p.report.Started {
			p.violation("second START_RUN")
		} else {
			p.report.Started = true
			p.report.RunID = p.newID()
			p.report.Description = label
		}
	case harness.StartSubtest:
		if p.open {
			p.violation(fmt.Sprintf(
				"START_SUBTEST while subtest %d has no outcome", p.report.Subtests))
		}
		p.report.Subtests++
		p.open = true
	case harness.SubtestPass, harness.SubtestFail:
		if p.report.Subtests == 0 {
			p.violation(fmt.Sprintf("%s outside a subtest", c))
		}
		if c == harness.SubtestPass {
			p.report.Passed++
		} else {
			p.report.Failed++
		}
		p.open = false
	case harness.EndRun:
		if p.open {
			p.violation(fmt.Sprintf(
				"END_RUN with subtest %d open", p.report.Subtests))
		}
		p.report.Ended = true
	}

	p.emit(c, label)
}

func (p *Peripheral) emit(c harness.Command, label string) {
	e := Event{
		Seq:     uint64(len(p.report.Events)) + 1,
		Command: c,
		Label:   label,
	}
	if c != harness.StartRun && c != harness.EndRun {
		e.Subtest = p.report.Subtests
	}

	p.report.Events = append(p.report.Events, e)

	if p.NumHooks() > 0 {
		p.InvokeHook(sim.HookCtx{
			Domain: p,
			Pos:    HookPosCommand,
			Item:   e,
		})
	}
}

func (p *Peripheral) violation(msg string) {
	glog.Errorf("testport: %s", msg)
	p.report.Violations = append(p.report.Violations, msg)

	if p.NumHooks() > 0 {
		p.InvokeHook(sim.HookCtx{
			Domain: p,
			Pos:    HookPosViolation,
			Item:   msg,
		})
	}
}

func (p *Peripheral) takeText() string {
	s := string(p.pending)
	p.pending = nil
	return s
}
