package confirm

// Confirmer owns one session's sliding window.
type Confirmer struct {
	buf *Buffer
}

// New returns a Confirmer with a window of k rounds.
func New(k int) *Confirmer {
	return &Confirmer{buf: NewBuffer(k)}
}

// Observe records a live round and applies the unanimity rule once the window
// is full. Live sessions never fall back to majority.
func (c *Confirmer) Observe(round Round) (Result, bool) {
	c.buf.Push(round)
	if !c.buf.Full() {
		return Result{}, false
	}
	return Unanimous(c.buf.Rounds())
}

// Conclude decides a completed burst: unanimity first, then majority.
func (c *Confirmer) Conclude() (Result, bool) {
	rounds := c.buf.Rounds()
	if result, ok := Unanimous(rounds); ok {
		return result, true
	}
	return Majority(rounds)
}

// Record appends a burst round without evaluating any rule.
func (c *Confirmer) Record(round Round) {
	c.buf.Push(round)
}

// Rounds returns the current window contents, oldest first.
func (c *Confirmer) Rounds() []Round { return c.buf.Rounds() }

// Window reports the configured window size.
func (c *Confirmer) Window() int { return c.buf.Capacity() }

// Full reports whether a burst has collected enough rounds.
func (c *Confirmer) Full() bool { return c.buf.Full() }

// Reset clears the window.
func (c *Confirmer) Reset() { c.buf.Reset() }
