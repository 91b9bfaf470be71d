package confirm

// Round is the outcome of one detection round.
type Round struct {
	Denomination string
	Present      bool
}

// Seen records a round whose top candidate was denomination.
func Seen(denomination string) Round {
	return Round{Denomination: denomination, Present: true}
}

// Absent records a round with no qualifying candidate or a failed inference.
func Absent() Round {
	return Round{}
}

func (r Round) String() string {
	if !r.Present {
		return "-"
	}
	return r.Denomination
}

// Buffer keeps the most recent rounds up to a fixed capacity.
type Buffer struct {
	capacity int
	rounds   []Round
}

// NewBuffer returns an empty buffer holding at most capacity rounds. A
// capacity below 1 is treated as 1.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{capacity: capacity, rounds: make([]Round, 0, capacity)}
}

// Push appends round, evicting the oldest entry once the buffer is full.
func (b *Buffer) Push(round Round) {
	if len(b.rounds) == b.capacity {
		copy(b.rounds, b.rounds[1:])
		b.rounds = b.rounds[:len(b.rounds)-1]
	}
	b.rounds = append(b.rounds, round)
}

// Len reports the number of buffered rounds.
func (b *Buffer) Len() int { return len(b.rounds) }

// Capacity reports the window size.
func (b *Buffer) Capacity() int { return b.capacity }

// Full reports whether the window holds capacity rounds.
func (b *Buffer) Full() bool { return len(b.rounds) == b.capacity }

// Rounds returns a copy of the buffered rounds, oldest first.
func (b *Buffer) Rounds() []Round {
	out := make([]Round, len(b.rounds))
	copy(out, b.rounds)
	return out
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.rounds = b.rounds[:0]
}
