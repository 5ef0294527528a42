package harness

// Register is a write-only, single-byte sink. Every Store is one event seen
// by the observer; nothing can be read back.
type Register interface {
	Store(value uint8)
}

// RegisterFunc adapts a plain function to a Register.
type RegisterFunc func(value uint8)

// Store calls f(value).
func (f RegisterFunc) Store(value uint8) {
	f(value)
}

// Port is the register pair the harness drives.
type Port struct {
	// Command receives command codes.
	Command Register
	// Output receives narration text, one byte per store.
	Output Register
}

// Tape is an in-memory Register that records every stored value.
type Tape struct {
	Values []uint8
}

// Store appends value to the tape.
func (t *Tape) Store(value uint8) {
	t.Values = append(t.Values, value)
}

// Commands returns the recorded values as commands.
func (t *Tape) Commands() []Command {
	cmds := make([]Command, len(t.Values))
	for i, v := range t.Values {
		cmds[i] = Command(v)
	}
	return cmds
}

// String returns the recorded values as text.
func (t *Tape) String() string {
	return string(t.Values)
}

// Reset discards all recorded values.
func (t *Tape) Reset() {
	t.Values = t.Values[:0]
}
