// Package random owns the single source of randomness behind outcome draws,
// simulated delays and generated identifiers.
package random

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Source is satisfied by *rand.Rand from math/rand/v2.
type Source interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// Default returns an unseeded source that is safe for concurrent use.
func Default() Source { return globalSource{} }

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// Seeded returns a deterministic source that is safe for concurrent use.
func Seeded(seed uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// New returns a seeded source when seed is non-nil, otherwise Default.
func New(seed *uint64) Source {
	if seed == nil {
		return Default()
	}
	return Seeded(*seed)
}

// Token returns n alphanumeric characters drawn from src.
func Token(src Source, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[src.IntN(len(alphanumeric))]
	}
	return string(b)
}

func PaymentID(src Source) string { return "pmt_" + Token(src, 10) }

func RefundID(src Source) string { return "ref_" + Token(src, 10) }

// Between returns an integer uniformly distributed in [lo, hi].
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Millis draws a duration in whole milliseconds uniformly from [lo, hi].
func Millis(src Source, lo, hi int) time.Duration {
	return time.Duration(Between(src, lo, hi)) * time.Millisecond
}

// Chance reports whether a single Bernoulli draw with probability p succeeded.
func Chance(src Source, p float64) bool { return src.Float64() < p }

// Pick returns a uniformly chosen element of items. items must not be empty.
func Pick[T any](src Source, items []T) T { return items[src.IntN(len(items))] }

// UUID returns a random UUIDv4 string. Correlation ids are never seeded.
func UUID() string { return uuid.NewString() }
