package config

import "time"

const (
	// Waiting
	DefaultWaitTimeout   = 2 * time.Minute
	DefaultSweepInterval = 5 * time.Second
	// Held-open request-match calls never wait longer than this.
	MaxRequestHold = 30 * time.Second

	// Handshake
	DefaultDecisionWindow    = 30 * time.Second
	DefaultResolvedRetention = 2 * time.Minute
	MaxConnectHold           = 2 * time.Minute

	// Shutdown
	DefaultShutdownTimeout = 120 * time.Second

	// Saved preferences
	PreferenceCacheTTL = 10 * time.Minute

	// Auth
	TokenLifetime = 72 * time.Hour
	TokenIssuer   = "peerprep-matching"
)

// Redis keys and channels.
const (
	SearchQueueKey      = "search_queue"
	PreferenceKeyPrefix = "userpref:"
	MatchEventsChannel  = "match-events"
)
