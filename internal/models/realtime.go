package models

import "time"

// EventType identifies a coordinator event.
type EventType string

const (
	// EventWaiting is emitted when a request enters the wait registry.
	EventWaiting EventType = "match_waiting"
	// EventWaitResolved is emitted when a wait ends without a match (cancelled or timed out).
	EventWaitResolved EventType = "wait_resolved"
	// EventMatchFound is emitted once per pairing, addressed to both users.
	EventMatchFound EventType = "match_found"
	// EventDecision is emitted when one participant accepts without resolving the session.
	EventDecision EventType = "decision_recorded"
	// EventSessionResolved is emitted when a session reaches a terminal state.
	EventSessionResolved EventType = "session_resolved"
	// EventCommandResult answers a ClientCommand on the socket that sent it.
	EventCommandResult EventType = "command_result"
)

// MatchEvent is the message the coordinator journals for persistence and push delivery.
type MatchEvent struct {
	Type       EventType    `json:"type"`
	Recipients []string     `json:"recipients"`
	// Actor is the user whose call produced the event, empty for timer-driven events.
	Actor      string       `json:"actor,omitempty"`
	MatchID    string       `json:"matchId,omitempty"`
	Status     string       `json:"status,omitempty"`
	Match      *MatchRecord `json:"match,omitempty"`
	Outcome    *Outcome     `json:"outcome,omitempty"`
	Error      string       `json:"error,omitempty"`
	At         time.Time    `json:"at"`
}

// ClientCommand is an inbound WebSocket message.
type ClientCommand struct {
	// Type is "accept", "reject" or "cancel", compared case-insensitively.
	Type    string `json:"type"`
	MatchID string `json:"matchId,omitempty"`
}
