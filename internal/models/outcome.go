package models

import (
	"strings"
	"time"
)

// OutcomeStatus is the result of a single wait for a partner.
type OutcomeStatus string

const (
	OutcomeWaiting   OutcomeStatus = "WAITING"
	OutcomeMatched   OutcomeStatus = "MATCHED"
	OutcomeCancelled OutcomeStatus = "CANCELLED"
	OutcomeTimeout   OutcomeStatus = "TIMEOUT"
)

// Outcome is what a requestMatch/awaitMatch caller receives.
// Match holds the partner's preferences when Status is MATCHED.
type Outcome struct {
	Status  OutcomeStatus      `json:"status"`
	MatchID string             `json:"matchId,omitempty"`
	Match   *PreferenceRequest `json:"match,omitempty"`
	Terms   *Terms             `json:"terms,omitempty"`
}

// SessionState is the state of a rendezvous between two matched users.
type SessionState string

const (
	StateSearching         SessionState = "SEARCHING"
	StateAwaitingDecisions SessionState = "AWAITING_DECISIONS"
	StateAccepted          SessionState = "ACCEPTED"
	StateRejected          SessionState = "REJECTED"
	StateTimedOut          SessionState = "TIMED_OUT"
	StateCancelled         SessionState = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s SessionState) Terminal() bool {
	switch s {
	case StateAccepted, StateRejected, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

// Decision is one participant's answer to a match.
type Decision string

const (
	DecisionPending  Decision = "PENDING"
	DecisionAccepted Decision = "ACCEPTED"
	DecisionRejected Decision = "REJECTED"
)

// ParseDecision accepts "accept"/"reject" in any case, with or without the -ed suffix.
func ParseDecision(s string) (Decision, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACCEPT", "ACCEPTED":
		return DecisionAccepted, true
	case "REJECT", "REJECTED":
		return DecisionRejected, true
	}
	return "", false
}

// Wire statuses returned by the connect call.
const (
	WireSuccess  = "SUCCESS"
	WireRejected = "REJECTED"
	WirePending  = "PENDING"
)

// Resolution is a snapshot of a session as seen by one participant.
type Resolution struct {
	MatchID string       `json:"matchId"`
	State   SessionState `json:"state"`
	// ResolvedBy is the user whose action ended the session, empty for ACCEPTED and TIMED_OUT.
	ResolvedBy string `json:"resolvedBy,omitempty"`
}

// WireStatus maps the state onto the connect contract: SUCCESS only when both
// accepted, REJECTED for every other terminal state.
func (r Resolution) WireStatus() string {
	switch {
	case r.State == StateAccepted:
		return WireSuccess
	case r.State.Terminal():
		return WireRejected
	}
	return WirePending
}

// CancelResult tells a caller what a cancel actually did.
type CancelResult string

const (
	CancelNone      CancelResult = "NONE"
	CancelWithdrawn CancelResult = "WITHDRAWN"
	CancelVetoed    CancelResult = "VETOED"
)

// User activity as reported by the status call.
const (
	UserIdle      = "IDLE"
	UserSearching = "SEARCHING"
	UserInSession = "IN_SESSION"
)

// UserStatus is the coordinator's view of one user.
type UserStatus struct {
	UserID  string       `json:"userId"`
	State   string       `json:"state"`
	MatchID string       `json:"matchId,omitempty"`
	Session SessionState `json:"session,omitempty"`
	Since   *time.Time   `json:"since,omitempty"`
}
