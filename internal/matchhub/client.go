package matchhub

import "peerprep/backend/internal/models"

// Client is one push connection of a user. The hub owns its lifecycle once
// it has been registered.
type Client interface {
	// GetUserID returns the user the connection belongs to.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes events for this
	// client to. It is never written to after Close.
	GetSendChannel() chan<- models.MatchEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the connection down. The hub calls it exactly once.
	Close()
}
