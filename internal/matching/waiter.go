package matching

import (
	"sync"
	"sync/atomic"
	"time"

	"peerprep/backend/internal/models"
)

// waiter is a one-shot delivery slot for one wait. It is resolved at most once
// and its outcome can be claimed by at most one caller.
type waiter struct {
	once       sync.Once
	done       chan struct{}
	outcome    models.Outcome
	resolvedAt time.Time
	claimed    atomic.Bool
}

func newWaiter() *waiter {
	return &waiter{done: make(chan struct{})}
}

// resolve stores the outcome and wakes every goroutine blocked on done.
// Only the first call has any effect.
func (w *waiter) resolve(o models.Outcome, at time.Time) bool {
	won := false
	w.once.Do(func() {
		w.outcome = o
		w.resolvedAt = at
		close(w.done)
		won = true
	})
	return won
}

func (w *waiter) isResolved() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// claim hands the outcome to the first caller only. It must be called after done is closed.
func (w *waiter) claim() (models.Outcome, bool) {
	if !w.claimed.CompareAndSwap(false, true) {
		return models.Outcome{}, false
	}
	return w.outcome, true
}
