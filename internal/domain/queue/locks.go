package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// doctorLocks serializes mutation+recompute sequences per doctor. Each
// doctor gets a one-slot semaphore; acquisition is bounded so contention on
// one doctor's queue never starves requests for other doctors.
type doctorLocks struct {
	mu      sync.Mutex
	sems    map[uuid.UUID]chan struct{}
	timeout time.Duration
}

func newDoctorLocks(timeout time.Duration) *doctorLocks {
	return &doctorLocks{
		sems:    make(map[uuid.UUID]chan struct{}),
		timeout: timeout,
	}
}

func (l *doctorLocks) sem(doctorID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[doctorID]
	if !ok {
		s = make(chan struct{}, 1)
		l.sems[doctorID] = s
	}
	return s
}

// acquire takes the doctor's semaphore, waiting at most the configured
// timeout. Returns a release func on success and ErrBusy on timeout. A
// cancelled caller gets its context error instead, since retrying is
// pointless once the request is gone.
func (l *doctorLocks) acquire(ctx context.Context, doctorID uuid.UUID) (func(), error) {
	s := l.sem(doctorID)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrBusy
	}
}
