package generator

import (
	"slices"

	"paysim/internal/helpers/random"
)

const DefaultPoolCapacity = 100

// Entry is a payment the generator saw succeed, with the trace it was created under.
type Entry struct {
	PaymentID string
	TraceID   string
}

// Pool is a bounded FIFO of recently successful payments. It is not safe for
// concurrent use; the generator loop is its only owner.
type Pool struct {
	entries  []Entry
	capacity int
}

func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultPoolCapacity
	}
	return &Pool{entries: make([]Entry, 0, capacity+1), capacity: capacity}
}

// Add appends e and evicts the oldest entries beyond capacity.
func (p *Pool) Add(e Entry) {
	p.entries = append(p.entries, e)
	if over := len(p.entries) - p.capacity; over > 0 {
		n := copy(p.entries, p.entries[over:])
		p.entries = p.entries[:n]
	}
}

// Remove drops the first entry with paymentID and reports whether one was found.
func (p *Pool) Remove(paymentID string) bool {
	i := slices.IndexFunc(p.entries, func(e Entry) bool { return e.PaymentID == paymentID })
	if i < 0 {
		return false
	}
	p.entries = slices.Delete(p.entries, i, i+1)
	return true
}

// Pick returns a uniformly chosen entry, or false when the pool is empty.
func (p *Pool) Pick(src random.Source) (Entry, bool) {
	if len(p.entries) == 0 {
		return Entry{}, false
	}
	return random.Pick(src, p.entries), true
}

func (p *Pool) Len() int { return len(p.entries) }

// Entries returns a copy, oldest first.
func (p *Pool) Entries() []Entry { return slices.Clone(p.entries) }
