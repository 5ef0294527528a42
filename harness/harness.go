package harness

// Phase is the position of the harness in the run.
type Phase int

// Phases of a run.
const (
	Uninitialized Phase = iota
	RunActive
	SubtestActive
	SubtestDone
	RunEnded
)

var phaseNames = [...]string{
	Uninitialized: "UNINITIALIZED",
	RunActive:     "RUN_ACTIVE",
	SubtestActive: "SUBTEST_ACTIVE",
	SubtestDone:   "SUBTEST_DONE",
	RunEnded:      "RUN_ENDED",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "INVALID"
	}
	return phaseNames[p]
}

// Harness sequences a test run on the command register and narrates it on
// the output register.
//
// Every operation with a description writes the text first and the command
// second, so the observer can attach the text it has collected to the
// command that follows it. Call order is the caller's responsibility: the
// harness tracks its phase but never rejects a call.
type Harness struct {
	cmd  Register
	text *Channel

	brackets bool
	phase    Phase

	// executing is true between SubtestExecuting and SubtestExecutingDone.
	executing bool
}

// Option is a functional option for configuring the Harness.
type Option func(*Harness)

// WithExecuteBrackets enables the bracketed wire revision. StartSubtest
// then also writes SubtestExecuting, and the first outcome of the subtest
// is preceded by SubtestExecutingDone.
func WithExecuteBrackets() Option {
	return func(h *Harness) {
		h.brackets = true
	}
}

// New creates a Harness driving the given port.
func New(port Port, opts ...Option) *Harness {
	h := &Harness{
		cmd:  port.Command,
		text: NewChannel(port.Output),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Phase returns the current phase.
func (h *Harness) Phase() Phase {
	return h.phase
}

// Brackets reports whether the bracketed revision is in use.
func (h *Harness) Brackets() bool {
	return h.brackets
}

// StartRun emits the run description and writes StartRun.
func (h *Harness) StartRun(desc string) {
	h.text.Emit(desc)
	h.command(StartRun)
	h.phase = RunActive
}

// StartSubtest emits the subtest description and writes StartSubtest.
func (h *Harness) StartSubtest(desc string) {
	h.text.Emit(desc)
	h.command(StartSubtest)
	if h.brackets {
		h.command(SubtestExecuting)
		h.executing = true
	}
	h.phase = SubtestActive
}

// Check reports the outcome of one boolean condition: SubtestPass if ok
// holds, SubtestFail otherwise. A failed check does not stop the run.
func (h *Harness) Check(desc string, ok bool) {
	if ok {
		h.Pass(desc)
	} else {
		h.Fail(desc)
	}
}

// Pass reports an unconditional success.
func (h *Harness) Pass(desc string) {
	h.outcome(desc, SubtestPass)
}

// Fail reports an unconditional failure.
func (h *Harness) Fail(desc string) {
	h.outcome(desc, SubtestFail)
}

// EndRun writes EndRun. No command written after it is meaningful.
func (h *Harness) EndRun() {
	h.command(EndRun)
	h.phase = RunEnded
}

// Note emits free-form text without touching the command register.
func (h *Harness) Note(text string) {
	h.text.Emit(text)
}

func (h *Harness) outcome(desc string, c Command) {
	if h.executing {
		h.command(SubtestExecutingDone)
		h.executing = false
	}
	h.text.Emit(desc)
	h.command(c)
	h.phase = SubtestDone
}

func (h *Harness) command(c Command) {
	h.cmd.Store(uint8(c))
}
