package store

import (
	"sync"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
)

// RangeLock serializes the check-then-create path at rank-and-overlapping-
// range granularity. Two concurrent submissions for the same rank over
// intersecting dates take turns; unrelated ranks and disjoint ranges do not
// block each other. Without this, both writers could read availability above
// the minimum and jointly push the rank below it undetected.
type RangeLock struct {
	mu   sync.Mutex
	cond *sync.Cond
	held map[models.Rank][]span
}

type span struct {
	start, end time.Time
}

func (s span) overlaps(other span) bool {
	return !s.start.After(other.end) && !other.start.After(s.end)
}

func NewRangeLock() *RangeLock {
	l := &RangeLock{held: make(map[models.Rank][]span)}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire blocks until no held acquisition of the same rank overlaps
// [start, end], then records the range as held.
func (l *RangeLock) Acquire(rank models.Rank, start, end time.Time) {
	want := span{start: start, end: end}
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.anyOverlap(rank, want) {
		l.cond.Wait()
	}
	l.held[rank] = append(l.held[rank], want)
}

// Release drops a previously acquired range and wakes waiters.
func (l *RangeLock) Release(rank models.Rank, start, end time.Time) {
	want := span{start: start, end: end}
	l.mu.Lock()
	defer l.mu.Unlock()
	spans := l.held[rank]
	for i := range spans {
		if spans[i] == want {
			l.held[rank] = append(spans[:i], spans[i+1:]...)
			break
		}
	}
	l.cond.Broadcast()
}

func (l *RangeLock) anyOverlap(rank models.Rank, want span) bool {
	for _, s := range l.held[rank] {
		if s.overlaps(want) {
			return true
		}
	}
	return false
}
