package purchase

import (
	"sort"
	"time"
)

// ManualScheduler queues callbacks until Advance moves its clock past them. It keeps
// every callback on the caller's goroutine.
type ManualScheduler struct {
	now     time.Duration
	seq     int
	pending []*scheduled
}

type scheduled struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// AfterFunc queues fn to run once the clock has advanced by d.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	s.seq++
	job := &scheduled{at: s.now + d, seq: s.seq, fn: fn}
	s.pending = append(s.pending, job)
	return func() { job.cancelled = true }
}

// Advance moves the clock forward by d and runs every callback now due, oldest first.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.now += d
	sort.Slice(s.pending, func(i, j int) bool {
		if s.pending[i].at == s.pending[j].at {
			return s.pending[i].seq < s.pending[j].seq
		}
		return s.pending[i].at < s.pending[j].at
	})
	ran := 0
	for len(s.pending) > 0 && s.pending[0].at <= s.now {
		job := s.pending[0]
		s.pending = s.pending[1:]
		if job.cancelled {
			continue
		}
		job.fn()
		ran++
	}
	return ran
}

// Pending counts queued callbacks that have not been cancelled.
func (s *ManualScheduler) Pending() int {
	n := 0
	for _, job := range s.pending {
		if !job.cancelled {
			n++
		}
	}
	return n
}
