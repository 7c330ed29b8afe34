package matching

import "errors"

var (
	// ErrAlreadyMatched is returned when a user in an active session requests another match.
	ErrAlreadyMatched = errors.New("user already has an active match session")
	// ErrUnknownSession is returned for decisions on a missing or resolved session.
	ErrUnknownSession = errors.New("match session not found or already resolved")
	// ErrDuplicateDecision is returned when a participant decides twice.
	ErrDuplicateDecision = errors.New("decision already recorded")
	// ErrNoPendingRequest is returned when there is no wait to await.
	ErrNoPendingRequest = errors.New("no pending match request")
	// ErrShuttingDown is returned for new requests once Shutdown has started.
	ErrShuttingDown = errors.New("matching service is shutting down")
)
