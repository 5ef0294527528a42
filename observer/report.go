package observer

import "github.com/sarchlab/testport/harness"

// Event is one decoded command together with the text that preceded it.
type Event struct {
	// Seq numbers events from 1 in the order they were decoded.
	Seq uint64 `json:"seq"`

	// Command is the decoded command.
	Command harness.Command `json:"command"`

	// Label is the text received on the output register since the
	// previous command.
	Label string `json:"label,omitempty"`

	// Subtest is the 1-based index of the subtest the event belongs to,
	// or 0 outside any subtest.
	Subtest int `json:"subtest,omitempty"`
}

// Report summarizes everything the observer saw during one run.
type Report struct {
	// RunID identifies the run. It is assigned at START_RUN.
	RunID string `json:"run_id,omitempty"`

	// Description is the label of the START_RUN event.
	Description string `json:"description,omitempty"`

	// Events lists every decoded command in order.
	Events []Event `json:"events"`

	// Subtests is the number of START_SUBTEST commands.
	Subtests int `json:"subtests"`

	// Passed is the number of SUBTEST_PASS commands.
	Passed int `json:"passed"`

	// Failed is the number of SUBTEST_FAIL commands.
	Failed int `json:"failed"`

	// Notes holds narration closed by SUBTEST_EXECUTING_DONE.
	Notes []string `json:"notes,omitempty"`

	// Pending is text received after the last command.
	Pending string `json:"pending,omitempty"`

	// Violations lists protocol misuse detected by the observer. They are
	// diagnostics only; the observer never rejects a write.
	Violations []string `json:"violations,omitempty"`

	// Started is true once START_RUN has been written.
	Started bool `json:"started"`

	// Ended is true once END_RUN has been written.
	Ended bool `json:"ended"`
}

// OK reports whether the run completed with no failed check.
func (r Report) OK() bool {
	return r.Started && r.Ended && r.Failed == 0
}

// Checks returns the number of outcomes reported.
func (r Report) Checks() int {
	return r.Passed + r.Failed
}
