package harness

// Channel streams narration text to the output register.
type Channel struct {
	out Register
}

// NewChannel creates a Channel writing to out.
func NewChannel(out Register) *Channel {
	return &Channel{out: out}
}

// Emit stores each byte of text, in order. No terminator is added.
func (c *Channel) Emit(text string) {
	for i := 0; i < len(text); i++ {
		c.out.Store(text[i])
	}
}
