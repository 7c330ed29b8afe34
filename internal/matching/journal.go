package matching

import (
	"context"
	"log"
	"sync"
	"time"

	"peerprep/backend/internal/models"
)

// Recorder persists match records. Implementations may block on I/O; they are
// only ever called from the journal worker.
type Recorder interface {
	RecordMatch(ctx context.Context, rec models.MatchRecord) error
	RecordResolution(ctx context.Context, matchID string, state models.SessionState, at time.Time) error
	RecordWaiting(ctx context.Context, userID string, waiting bool) error
}

// Notifier pushes events to connected users.
type Notifier interface {
	Notify(ev models.MatchEvent)
}

type nopRecorder struct{}

func (nopRecorder) RecordMatch(context.Context, models.MatchRecord) error { return nil }
func (nopRecorder) RecordResolution(context.Context, string, models.SessionState, time.Time) error {
	return nil
}
func (nopRecorder) RecordWaiting(context.Context, string, bool) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Notify(models.MatchEvent) {}

const recordTimeout = 5 * time.Second

// journal is an unbounded FIFO of events. push never blocks, so it is safe to
// call while holding coordinator or session locks; the single worker keeps the
// recorder and notifier calls in push order.
type journal struct {
	mu     sync.Mutex
	queue  []models.MatchEvent
	closed bool
	signal chan struct{}

	recorder Recorder
	notifier Notifier
}

func newJournal(r Recorder, n Notifier) *journal {
	if r == nil {
		r = nopRecorder{}
	}
	if n == nil {
		n = nopNotifier{}
	}
	return &journal{
		signal:   make(chan struct{}, 1),
		recorder: r,
		notifier: n,
	}
}

func (j *journal) push(ev models.MatchEvent) {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		log.Printf("WARNING: journal closed, dropping %s event for match %q", ev.Type, ev.MatchID)
		return
	}
	j.queue = append(j.queue, ev)
	j.mu.Unlock()

	select {
	case j.signal <- struct{}{}:
	default:
	}
}

// close stops accepting events. The worker exits once the queue is drained.
func (j *journal) close() {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()

	select {
	case j.signal <- struct{}{}:
	default:
	}
}

func (j *journal) run() {
	for range j.signal {
		for {
			j.mu.Lock()
			if len(j.queue) == 0 {
				closed := j.closed
				j.mu.Unlock()
				if closed {
					return
				}
				break
			}
			batch := j.queue
			j.queue = nil
			j.mu.Unlock()

			for _, ev := range batch {
				j.deliver(ev)
			}
		}
	}
}

func (j *journal) deliver(ev models.MatchEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	var err error
	switch ev.Type {
	case models.EventWaiting, models.EventWaitResolved:
		for _, userID := range ev.Recipients {
			if werr := j.recorder.RecordWaiting(ctx, userID, ev.Type == models.EventWaiting); werr != nil {
				err = werr
			}
		}
	case models.EventMatchFound:
		if ev.Match != nil {
			err = j.recorder.RecordMatch(ctx, *ev.Match)
		}
	case models.EventSessionResolved:
		err = j.recorder.RecordResolution(ctx, ev.MatchID, models.SessionState(ev.Status), ev.At)
	}
	if err != nil {
		log.Printf("ERROR: Failed to record %s event for match %q: %v", ev.Type, ev.MatchID, err)
	}

	j.notifier.Notify(ev)
}
