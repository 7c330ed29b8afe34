package matching

import (
	"fmt"
	"sort"
	"time"

	"peerprep/backend/internal/models"
)

// WaitingEntry is one user's pending request.
type WaitingEntry struct {
	Preferences models.PreferenceSet
	EnqueuedAt  time.Time

	waiter *waiter
}

// UserID returns the owner of the entry.
func (e *WaitingEntry) UserID() string { return e.Preferences.UserID() }

// WaitRegistry is the table of waiting requests, keyed by user id, plus the
// set of users currently held by an active session.
//
// WaitRegistry is not safe for concurrent use. The Coordinator owns it and
// serializes every call under its own mutex.
type WaitRegistry struct {
	entries map[string]*WaitingEntry
	matched map[string]string // userID -> matchID
}

// NewWaitRegistry creates an empty registry.
func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{
		entries: make(map[string]*WaitingEntry),
		matched: make(map[string]string),
	}
}

// Enqueue inserts the request or replaces the user's existing one. The replaced
// entry, if any, is returned so its waiter can be resolved by the caller.
func (r *WaitRegistry) Enqueue(prefs models.PreferenceSet, now time.Time) (entry, replaced *WaitingEntry, err error) {
	userID := prefs.UserID()
	if matchID, busy := r.matched[userID]; busy {
		return nil, nil, fmt.Errorf("user %s in match %s: %w", userID, matchID, ErrAlreadyMatched)
	}

	replaced = r.entries[userID]
	entry = &WaitingEntry{
		Preferences: prefs,
		EnqueuedAt:  now,
		waiter:      newWaiter(),
	}
	r.entries[userID] = entry
	return entry, replaced, nil
}

// Remove deletes the user's entry. It is idempotent.
func (r *WaitRegistry) Remove(userID string) bool {
	if _, ok := r.entries[userID]; !ok {
		return false
	}
	delete(r.entries, userID)
	return true
}

// Lookup returns the user's waiting entry.
func (r *WaitRegistry) Lookup(userID string) (*WaitingEntry, bool) {
	e, ok := r.entries[userID]
	return e, ok
}

// FindCompatible scans the waiting entries for the partner SelectPartner would
// choose for prefs. It never returns excludeUserID and never modifies the table.
func (r *WaitRegistry) FindCompatible(prefs models.PreferenceSet, excludeUserID string) (*WaitingEntry, bool) {
	candidates := make([]*WaitingEntry, 0, len(r.entries))
	for userID, e := range r.entries {
		if userID == excludeUserID {
			continue
		}
		if _, busy := r.matched[userID]; busy {
			continue
		}
		candidates = append(candidates, e)
	}
	return SelectPartner(prefs, candidates)
}

// MarkMatched records that the user is held by a session.
func (r *WaitRegistry) MarkMatched(userID, matchID string) {
	r.matched[userID] = matchID
}

// Release frees the user from matchID. A stale release for another match is ignored.
func (r *WaitRegistry) Release(userID, matchID string) bool {
	if r.matched[userID] != matchID {
		return false
	}
	delete(r.matched, userID)
	return true
}

// MatchOf returns the active match holding the user.
func (r *WaitRegistry) MatchOf(userID string) (string, bool) {
	id, ok := r.matched[userID]
	return id, ok
}

// Expired returns the entries enqueued more than ttl before now, oldest first.
func (r *WaitRegistry) Expired(now time.Time, ttl time.Duration) []*WaitingEntry {
	var out []*WaitingEntry
	for _, e := range r.entries {
		if now.Sub(e.EnqueuedAt) > ttl {
			out = append(out, e)
		}
	}
	sortByArrival(out)
	return out
}

// Waiting returns every waiting entry, oldest first.
func (r *WaitRegistry) Waiting() []*WaitingEntry {
	out := make([]*WaitingEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sortByArrival(out)
	return out
}

// Len returns the number of waiting entries.
func (r *WaitRegistry) Len() int { return len(r.entries) }

func sortByArrival(entries []*WaitingEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return arrivedBefore(entries[i], entries[j])
	})
}

func arrivedBefore(a, b *WaitingEntry) bool {
	if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	}
	return a.UserID() < b.UserID()
}
