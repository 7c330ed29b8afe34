package matching

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"peerprep/backend/internal/config"
	"peerprep/backend/internal/models"
)

// Options tune a Coordinator. Zero values fall back to the package defaults in config.
type Options struct {
	WaitTimeout       time.Duration
	DecisionWindow    time.Duration
	SweepInterval     time.Duration
	ResolvedRetention time.Duration

	Recorder Recorder
	Notifier Notifier

	// Now is the clock; tests replace it.
	Now func() time.Time
	// NewMatchID generates match ids; uuid.NewString when nil.
	NewMatchID func() string
}

// OptionsFromConfig maps the service configuration onto coordinator options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WaitTimeout:       cfg.WaitTimeout,
		DecisionWindow:    cfg.DecisionWindow,
		SweepInterval:     cfg.SweepInterval,
		ResolvedRetention: cfg.ResolvedRetention,
	}
}

type retained struct {
	res models.Resolution
	at  time.Time
}

// Coordinator owns the wait registry and every rendezvous session. All of its
// methods are safe for concurrent use.
//
// Lock discipline: c.mu guards registry, sessions, waits, resolved and
// closing; each session has its own mutex. The two are never held together.
type Coordinator struct {
	opts Options

	mu       sync.Mutex
	registry *WaitRegistry
	sessions map[string]*session
	waits    map[string]*waiter
	resolved map[string]retained
	closing  bool

	journal     *journal
	started     atomic.Bool
	journalDone chan struct{}
	stop        chan struct{}
	stopOnce    sync.Once
}

// New creates a Coordinator. Call Run to start the sweeper and event delivery.
func New(opts Options) *Coordinator {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = config.DefaultWaitTimeout
	}
	if opts.DecisionWindow <= 0 {
		opts.DecisionWindow = config.DefaultDecisionWindow
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = config.DefaultSweepInterval
	}
	if opts.ResolvedRetention <= 0 {
		opts.ResolvedRetention = config.DefaultResolvedRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewMatchID == nil {
		opts.NewMatchID = uuid.NewString
	}

	return &Coordinator{
		opts:        opts,
		registry:    NewWaitRegistry(),
		sessions:    make(map[string]*session),
		waits:       make(map[string]*waiter),
		resolved:    make(map[string]retained),
		journal:     newJournal(opts.Recorder, opts.Notifier),
		journalDone: make(chan struct{}),
		stop:        make(chan struct{}),
	}
}

// RequestMatch registers prefs and tries to pair them with a waiting user.
//
// On an immediate pairing both sides are resolved MATCHED: this call returns
// its own outcome and the partner's pending wait receives the mirror image.
// Otherwise the request stays registered and WAITING is returned; the outcome
// is then collected with AwaitMatch.
func (c *Coordinator) RequestMatch(ctx context.Context, prefs models.PreferenceSet) (models.Outcome, error) {
	if prefs.IsZero() {
		return models.Outcome{}, &models.ValidationError{Field: "userId", Reason: "is required"}
	}

	out, s, releasing, err := c.tryRequest(prefs)
	if releasing != nil {
		// The user's last session has resolved but is still being released.
		select {
		case <-releasing:
		case <-ctx.Done():
			return models.Outcome{}, err
		}
		out, s, _, err = c.tryRequest(prefs)
	}
	if s != nil {
		s.arm(c.opts.DecisionWindow, func(gen uint64) { c.expireSession(s, gen) })
	}
	return out, err
}

func (c *Coordinator) tryRequest(prefs models.PreferenceSet) (models.Outcome, *session, <-chan struct{}, error) {
	userID := prefs.UserID()
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return models.Outcome{}, nil, nil, ErrShuttingDown
	}

	// 1. Register (or replace) the wait
	entry, replaced, err := c.registry.Enqueue(prefs, now)
	if err != nil {
		if matchID, ok := c.registry.MatchOf(userID); ok {
			if s := c.sessions[matchID]; s != nil && s.terminal.Load() {
				return models.Outcome{}, nil, s.done, err
			}
		}
		return models.Outcome{}, nil, nil, err
	}
	if replaced != nil {
		c.resolveWaitLocked(replaced.waiter, userID, models.Outcome{Status: models.OutcomeCancelled}, now)
	}
	delete(c.resolved, userID)
	c.waits[userID] = entry.waiter

	// 2. Look for a partner and pair them
	if partner, found := c.registry.FindCompatible(prefs, userID); found {
		s, err := c.pairLocked(partner, entry, now)
		if err == nil {
			out, _ := entry.waiter.claim()
			delete(c.waits, userID)
			return out, s, nil, nil
		}
		log.Printf("ERROR: Refusing to pair %s with %s: %v", partner.UserID(), userID, err)
	}

	// 3. Nobody yet, keep waiting
	c.journal.push(models.MatchEvent{
		Type:       models.EventWaiting,
		Recipients: []string{userID},
		Actor:      userID,
		Status:     string(models.OutcomeWaiting),
		At:         now,
	})
	return models.Outcome{Status: models.OutcomeWaiting}, nil, nil, nil
}

// pairLocked turns two waiting entries into a session. waiting is the user that
// was already registered, arriving is the request that completed the pair.
func (c *Coordinator) pairLocked(waiting, arriving *WaitingEntry, now time.Time) (*session, error) {
	terms, ok := Agree(waiting.Preferences, arriving.Preferences)
	if !ok {
		return nil, errors.New("preferences are not compatible")
	}

	rec := models.MatchRecord{
		MatchID:          c.opts.NewMatchID(),
		UserA:            waiting.UserID(),
		UserB:            arriving.UserID(),
		AgreedTopic:      terms.Topic,
		AgreedDifficulty: terms.Difficulty,
		AgreedTime:       terms.Time,
		Status:           string(models.StateAwaitingDecisions),
		CreatedAt:        now,
	}
	s, err := newSession(rec, waiting.Preferences, arriving.Preferences)
	if err != nil {
		return nil, err
	}

	c.registry.Remove(rec.UserA)
	c.registry.Remove(rec.UserB)
	c.registry.MarkMatched(rec.UserA, rec.MatchID)
	c.registry.MarkMatched(rec.UserB, rec.MatchID)
	c.sessions[rec.MatchID] = s
	delete(c.resolved, rec.UserA)

	waitingReq := waiting.Preferences.Request()
	arrivingReq := arriving.Preferences.Request()
	waiting.waiter.resolve(models.Outcome{
		Status:  models.OutcomeMatched,
		MatchID: rec.MatchID,
		Match:   &arrivingReq,
		Terms:   &terms,
	}, now)
	arriving.waiter.resolve(models.Outcome{
		Status:  models.OutcomeMatched,
		MatchID: rec.MatchID,
		Match:   &waitingReq,
		Terms:   &terms,
	}, now)

	c.journal.push(models.MatchEvent{
		Type:       models.EventMatchFound,
		Recipients: []string{rec.UserA, rec.UserB},
		Actor:      rec.UserB,
		MatchID:    rec.MatchID,
		Status:     rec.Status,
		Match:      &rec,
		At:         now,
	})

	log.Printf("INFO: Matched %s with %s (match %s, topic %s, difficulty %s, time %d)",
		rec.UserA, rec.UserB, rec.MatchID, terms.Topic, terms.Difficulty, terms.Time)
	return s, nil
}

// AwaitMatch blocks until the user's current wait resolves and hands the
// outcome out exactly once.
//
// If ctx hits its deadline first the wait is kept and WAITING is returned. If
// ctx is canceled the caller is treated as gone and the wait is cancelled.
func (c *Coordinator) AwaitMatch(ctx context.Context, userID string) (models.Outcome, error) {
	c.mu.Lock()
	w, ok := c.waits[userID]
	c.mu.Unlock()
	if !ok {
		return models.Outcome{}, ErrNoPendingRequest
	}

	if !w.isResolved() {
		select {
		case <-w.done:
		case <-ctx.Done():
			if w.isResolved() {
				break
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return models.Outcome{Status: models.OutcomeWaiting}, nil
			}
			c.abandon(userID, w)
			c.forgetWait(userID, w)
			return models.Outcome{Status: models.OutcomeCancelled}, ctx.Err()
		}
	}

	out, ok := w.claim()
	c.forgetWait(userID, w)
	if !ok {
		return models.Outcome{}, ErrNoPendingRequest
	}
	return out, nil
}

// forgetWait drops w once its outcome has been handed out.
func (c *Coordinator) forgetWait(userID string, w *waiter) {
	w.claimed.Store(true)

	c.mu.Lock()
	if c.waits[userID] == w {
		delete(c.waits, userID)
	}
	c.mu.Unlock()
}

// abandon applies cancel semantics for a caller that disconnected while
// waiting on w. A newer request from the same user is left alone.
func (c *Coordinator) abandon(userID string, w *waiter) {
	now := c.opts.Now()

	c.mu.Lock()
	if e, ok := c.registry.Lookup(userID); ok && e.waiter == w {
		c.withdrawLocked(e, now)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Matched just as the caller went away: nobody will ever see the outcome,
	// so veto the session instead of leaving the partner to time out.
	if !w.isResolved() {
		return
	}
	out, ok := w.claim()
	if ok && out.Status == models.OutcomeMatched {
		c.vetoSession(userID, out.MatchID)
	}
}

// Accept records userID's acceptance and returns the resulting session state.
func (c *Coordinator) Accept(userID, matchID string) (models.SessionState, error) {
	return c.decide(userID, matchID, models.DecisionAccepted)
}

// Reject vetoes the session and returns its resulting state.
func (c *Coordinator) Reject(userID, matchID string) (models.SessionState, error) {
	return c.decide(userID, matchID, models.DecisionRejected)
}

func (c *Coordinator) decide(userID, matchID string, d models.Decision) (models.SessionState, error) {
	c.mu.Lock()
	s, ok := c.sessions[matchID]
	c.mu.Unlock()
	if !ok || !s.isParticipant(userID) {
		return "", ErrUnknownSession
	}

	now := c.opts.Now()

	s.mu.Lock()
	state, resolved, err := s.recordDecisionLocked(userID, d, now)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrUnknownSession) {
			if !s.terminal.Load() {
				log.Printf("ERROR: Tearing down match %s: %v", matchID, err)
				c.abort(s)
			}
			// Whoever resolved it is releasing both users; wait so the caller
			// never observes a half-released pair.
			<-s.done
		}
		return state, err
	}
	if !resolved {
		a, b := s.participants()
		c.journal.push(models.MatchEvent{
			Type:       models.EventDecision,
			Recipients: []string{a, b},
			Actor:      userID,
			MatchID:    matchID,
			Status:     string(d),
			At:         now,
		})
		s.mu.Unlock()
		return state, nil
	}
	res := s.resolutionLocked()
	s.mu.Unlock()

	c.finish(s, res, now)
	return state, nil
}

// Cancel withdraws the user's wait or vetoes the user's live session. It is a
// no-op when the user is in neither.
func (c *Coordinator) Cancel(userID string) models.CancelResult {
	now := c.opts.Now()

	c.mu.Lock()
	if e, ok := c.registry.Lookup(userID); ok {
		c.withdrawLocked(e, now)
		c.mu.Unlock()
		return models.CancelWithdrawn
	}
	matchID, inSession := c.registry.MatchOf(userID)
	c.mu.Unlock()

	if inSession && c.vetoSession(userID, matchID) {
		return models.CancelVetoed
	}
	return models.CancelNone
}

func (c *Coordinator) withdrawLocked(e *WaitingEntry, now time.Time) {
	userID := e.UserID()
	c.registry.Remove(userID)
	c.resolveWaitLocked(e.waiter, userID, models.Outcome{Status: models.OutcomeCancelled}, now)
	log.Printf("INFO: User %s withdrew from matching", userID)
}

// resolveWaitLocked ends a wait without a match.
func (c *Coordinator) resolveWaitLocked(w *waiter, userID string, out models.Outcome, now time.Time) {
	if !w.resolve(out, now) {
		return
	}
	c.journal.push(models.MatchEvent{
		Type:       models.EventWaitResolved,
		Recipients: []string{userID},
		Status:     string(out.Status),
		Outcome:    &out,
		At:         now,
	})
}

// vetoSession cancels matchID on behalf of userID and reports whether this
// call resolved it.
func (c *Coordinator) vetoSession(userID, matchID string) bool {
	c.mu.Lock()
	s, ok := c.sessions[matchID]
	c.mu.Unlock()
	if !ok {
		return false
	}

	now := c.opts.Now()
	s.mu.Lock()
	vetoed := s.cancelLocked(userID, now)
	res := s.resolutionLocked()
	s.mu.Unlock()

	if !vetoed {
		if s.terminal.Load() {
			<-s.done
		}
		return false
	}
	c.finish(s, res, now)
	return true
}

func (c *Coordinator) expireSession(s *session, gen uint64) {
	now := c.opts.Now()

	s.mu.Lock()
	expired := s.expireLocked(gen, now)
	res := s.resolutionLocked()
	s.mu.Unlock()

	if expired {
		log.Printf("INFO: Match %s timed out waiting for decisions", s.matchID())
		c.finish(s, res, now)
	}
}

func (c *Coordinator) abort(s *session) {
	now := c.opts.Now()

	s.mu.Lock()
	aborted := s.abortLocked(now)
	res := s.resolutionLocked()
	s.mu.Unlock()

	if aborted {
		c.finish(s, res, now)
	}
}

// finish releases both participants of a terminal session, retains the result
// for late readers and then wakes everyone blocked on the session.
func (c *Coordinator) finish(s *session, res models.Resolution, now time.Time) {
	a, b := s.participants()

	c.mu.Lock()
	c.registry.Release(a, res.MatchID)
	c.registry.Release(b, res.MatchID)
	delete(c.sessions, res.MatchID)
	for _, userID := range []string{a, b} {
		// Only remember the result if the user has not moved on already.
		if _, waiting := c.registry.Lookup(userID); !waiting {
			c.resolved[userID] = retained{res: res, at: now}
		}
	}
	c.journal.push(models.MatchEvent{
		Type:       models.EventSessionResolved,
		Recipients: []string{a, b},
		Actor:      res.ResolvedBy,
		MatchID:    res.MatchID,
		Status:     string(res.State),
		At:         now,
	})
	c.mu.Unlock()

	s.markDone()
	log.Printf("INFO: Match %s resolved as %s", res.MatchID, res.State)
}

// AwaitResolution is the connect call: it blocks until the user's session is
// terminal and returns the result. A user that is still searching is carried
// through its match first.
//
// On a deadline the current, still pending, state is returned. A canceled ctx
// vetoes the session. A search that ends without a match and is not replaced
// by a newer request reports TIMED_OUT or CANCELLED.
func (c *Coordinator) AwaitResolution(ctx context.Context, userID string) (models.Resolution, error) {
	var ended models.OutcomeStatus
	for {
		c.mu.Lock()
		if matchID, ok := c.registry.MatchOf(userID); ok {
			s := c.sessions[matchID]
			c.mu.Unlock()
			if s == nil {
				return models.Resolution{}, ErrUnknownSession
			}
			return c.awaitSession(ctx, userID, s)
		}
		if e, ok := c.registry.Lookup(userID); ok {
			w := e.waiter
			c.mu.Unlock()

			select {
			case <-w.done:
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return models.Resolution{State: models.StateSearching}, nil
				}
				c.abandon(userID, w)
				return models.Resolution{}, ctx.Err()
			}
			if w.outcome.Status != models.OutcomeMatched {
				// A re-request replaces the wait; follow the new one.
				ended = w.outcome.Status
			}
			continue
		}
		r, ok := c.resolved[userID]
		c.mu.Unlock()
		if ok {
			return r.res, nil
		}
		switch ended {
		case models.OutcomeTimeout:
			return models.Resolution{State: models.StateTimedOut}, nil
		case models.OutcomeCancelled:
			return models.Resolution{State: models.StateCancelled}, nil
		}
		return models.Resolution{}, ErrUnknownSession
	}
}

func (c *Coordinator) awaitSession(ctx context.Context, userID string, s *session) (models.Resolution, error) {
	select {
	case <-s.done:
		return s.resolution(), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return s.resolution(), nil
		}
		c.vetoSession(userID, s.matchID())
		return s.resolution(), ctx.Err()
	}
}

// Status reports what the coordinator currently knows about userID.
func (c *Coordinator) Status(userID string) models.UserStatus {
	st := models.UserStatus{UserID: userID, State: models.UserIdle}

	c.mu.Lock()
	if e, ok := c.registry.Lookup(userID); ok {
		since := e.EnqueuedAt
		c.mu.Unlock()
		st.State = models.UserSearching
		st.Session = models.StateSearching
		st.Since = &since
		return st
	}
	if matchID, ok := c.registry.MatchOf(userID); ok {
		s := c.sessions[matchID]
		c.mu.Unlock()
		st.State = models.UserInSession
		st.MatchID = matchID
		if s != nil {
			since := s.record.CreatedAt
			st.Since = &since
			st.Session = s.resolution().State
		}
		return st
	}
	r, ok := c.resolved[userID]
	c.mu.Unlock()
	if ok {
		at := r.at
		st.MatchID = r.res.MatchID
		st.Session = r.res.State
		st.Since = &at
	}
	return st
}

// Waiting returns the user ids currently searching, oldest first.
func (c *Coordinator) Waiting() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.registry.Waiting()
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID())
	}
	return ids
}

// ActiveSessions returns the number of sessions awaiting decisions.
func (c *Coordinator) ActiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Run delivers journal events and sweeps stale waits until ctx is done or
// Shutdown completes.
func (c *Coordinator) Run(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		c.journal.run()
		close(c.journalDone)
	}()

	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep(c.opts.Now())
		case <-ctx.Done():
			c.journal.close()
			return
		case <-c.stop:
			return
		}
	}
}

// sweep times out waits older than WaitTimeout and forgets results nobody
// came back for.
func (c *Coordinator) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.registry.Expired(now, c.opts.WaitTimeout) {
		userID := e.UserID()
		c.registry.Remove(userID)
		c.resolveWaitLocked(e.waiter, userID, models.Outcome{Status: models.OutcomeTimeout}, now)
		log.Printf("INFO: Wait of user %s timed out after %v", userID, c.opts.WaitTimeout)
	}

	for userID, w := range c.waits {
		if w.isResolved() && now.Sub(w.resolvedAt) > c.opts.ResolvedRetention {
			delete(c.waits, userID)
		}
	}
	for userID, r := range c.resolved {
		if now.Sub(r.at) > c.opts.ResolvedRetention {
			delete(c.resolved, userID)
		}
	}
}

// Shutdown stops accepting requests, cancels every wait and gives live
// sessions until ctx is done to resolve before cancelling them. Pending
// journal events are flushed before it returns.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	now := c.opts.Now()

	c.mu.Lock()
	c.closing = true
	for _, e := range c.registry.Waiting() {
		c.registry.Remove(e.UserID())
		c.resolveWaitLocked(e.waiter, e.UserID(), models.Outcome{Status: models.OutcomeCancelled}, now)
	}
	live := make([]*session, 0, len(c.sessions))
	for _, s := range c.sessions {
		live = append(live, s)
	}
	c.mu.Unlock()

	log.Printf("INFO: Shutting down matching, waiting for %d active sessions", len(live))

	var err error
	for _, s := range live {
		select {
		case <-s.done:
			continue
		case <-ctx.Done():
		}
		err = ctx.Err()
		break
	}
	if err != nil {
		for _, s := range live {
			c.abort(s)
		}
	}

	c.stopOnce.Do(func() { close(c.stop) })
	c.journal.close()
	if c.started.Load() {
		select {
		case <-c.journalDone:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	}
	return err
}
