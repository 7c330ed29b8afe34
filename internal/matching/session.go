package matching

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"peerprep/backend/internal/models"
)

// session is the rendezvous state machine of one matched pair.
//
// Fields below mu are guarded by it. Methods with a Locked suffix expect the
// caller to hold mu; the rest take it themselves.
type session struct {
	record models.MatchRecord
	prefs  map[string]models.PreferenceSet

	mu         sync.Mutex
	state      models.SessionState
	decisions  map[string]models.Decision
	resolvedBy string
	resolvedAt time.Time
	generation uint64
	timer      *time.Timer

	// terminal mirrors state.Terminal() for readers that may not take mu.
	terminal atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

func newSession(rec models.MatchRecord, a, b models.PreferenceSet) (*session, error) {
	if rec.UserA == "" || rec.UserB == "" || rec.UserA == rec.UserB {
		return nil, fmt.Errorf("invalid participants %q and %q for match %s", rec.UserA, rec.UserB, rec.MatchID)
	}
	if a.UserID() != rec.UserA || b.UserID() != rec.UserB {
		return nil, fmt.Errorf("preferences do not belong to participants of match %s", rec.MatchID)
	}
	return &session{
		record: rec,
		prefs: map[string]models.PreferenceSet{
			rec.UserA: a,
			rec.UserB: b,
		},
		state: models.StateAwaitingDecisions,
		decisions: map[string]models.Decision{
			rec.UserA: models.DecisionPending,
			rec.UserB: models.DecisionPending,
		},
		done: make(chan struct{}),
	}, nil
}

func (s *session) matchID() string { return s.record.MatchID }

func (s *session) participants() (string, string) { return s.record.UserA, s.record.UserB }

func (s *session) isParticipant(userID string) bool { return s.record.Involves(userID) }

// arm starts the decision timer. onExpire receives the generation it was armed with.
func (s *session) arm(window time.Duration, onExpire func(gen uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}
	s.generation++
	gen := s.generation
	s.timer = time.AfterFunc(window, func() { onExpire(gen) })
}

// recordDecisionLocked applies one participant's answer. resolved is true when
// this call moved the session into a terminal state.
func (s *session) recordDecisionLocked(userID string, d models.Decision, now time.Time) (state models.SessionState, resolved bool, err error) {
	if s.state.Terminal() || !s.isParticipant(userID) {
		return s.state, false, ErrUnknownSession
	}
	current, ok := s.decisions[userID]
	if !ok {
		return s.state, false, fmt.Errorf("participant %s missing from decisions of %s: %w", userID, s.matchID(), ErrUnknownSession)
	}
	if current != models.DecisionPending {
		return s.state, false, ErrDuplicateDecision
	}

	switch d {
	case models.DecisionRejected:
		s.decisions[userID] = d
		s.resolveLocked(models.StateRejected, userID, now)
		return s.state, true, nil
	case models.DecisionAccepted:
		s.decisions[userID] = d
		for _, other := range s.decisions {
			if other != models.DecisionAccepted {
				return s.state, false, nil
			}
		}
		s.resolveLocked(models.StateAccepted, "", now)
		return s.state, true, nil
	}
	return s.state, false, fmt.Errorf("unsupported decision %q", d)
}

// cancelLocked vetoes a live session on behalf of userID.
func (s *session) cancelLocked(userID string, now time.Time) bool {
	if s.state.Terminal() || !s.isParticipant(userID) {
		return false
	}
	s.resolveLocked(models.StateCancelled, userID, now)
	return true
}

// expireLocked times the session out. A fire from an older arming, or one
// that arrives after every decision is in, does nothing.
func (s *session) expireLocked(gen uint64, now time.Time) bool {
	if gen != s.generation || s.state.Terminal() {
		return false
	}
	pending := false
	for _, d := range s.decisions {
		if d == models.DecisionPending {
			pending = true
			break
		}
	}
	if !pending {
		return false
	}
	s.resolveLocked(models.StateTimedOut, "", now)
	return true
}

// abortLocked tears the session down without a participant action.
func (s *session) abortLocked(now time.Time) bool {
	if s.state.Terminal() {
		return false
	}
	s.resolveLocked(models.StateCancelled, "", now)
	return true
}

func (s *session) resolveLocked(state models.SessionState, by string, now time.Time) {
	s.state = state
	s.resolvedBy = by
	s.resolvedAt = now
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.terminal.Store(true)
}

func (s *session) resolutionLocked() models.Resolution {
	return models.Resolution{
		MatchID:    s.matchID(),
		State:      s.state,
		ResolvedBy: s.resolvedBy,
	}
}

func (s *session) resolution() models.Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolutionLocked()
}

func (s *session) decision(userID string) models.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decisions[userID]
}

// markDone broadcasts that both users have been released.
func (s *session) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
