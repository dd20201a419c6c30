package pipeline

import "sync/atomic"

// Sequence hands out consecutive iteration numbers to callers that trigger
// runs from more than one goroutine, such as the scheduler and the inbox.
type Sequence struct {
	next atomic.Int64
}

// NewSequence returns a sequence whose first value is start.
func NewSequence(start int) *Sequence {
	s := &Sequence{}
	s.next.Store(int64(start))
	return s
}

// Next returns the next iteration number.
func (s *Sequence) Next() int {
	return int(s.next.Add(1) - 1)
}

// Reserve returns the first of n consecutive iteration numbers.
func (s *Sequence) Reserve(n int) int {
	if n < 1 {
		n = 1
	}
	return int(s.next.Add(int64(n)) - int64(n))
}
