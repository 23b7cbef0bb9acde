// Package randomtest provides a scripted random.Source for forcing simulator branches.
package randomtest

import "sync"

// Script replays queued values. Once a queue is drained the last value
// is repeated, and an empty queue yields Fallback (Float64) or 0 (IntN).
type Script struct {
	mu       sync.Mutex
	floats   []float64
	ints     []int
	Fallback float64
}

func NewScript(floats ...float64) *Script {
	return &Script{floats: floats, Fallback: 0.99}
}

// Ints queues values returned by IntN, clamped to [0, n).
func (s *Script) Ints(v ...int) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, v...)
	return s
}

func (s *Script) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return s.Fallback
	}
	v := s.floats[0]
	if len(s.floats) > 1 {
		s.floats = s.floats[1:]
	}
	return v
}

func (s *Script) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	if len(s.ints) > 1 {
		s.ints = s.ints[1:]
	}
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}
