package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Terms are the representative values both partners agreed on.
type Terms struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Time       int    `json:"time"`
}

// MatchRecord represents one successful pairing of two waiting users.
// It is created once per pairing and never changes in memory; Status and
// ResolvedAt are only written to the database when the session resolves.
type MatchRecord struct {
	// MatchID is the unique identifier of the pairing (UUID).
	MatchID string `gorm:"primaryKey" json:"matchId"`
	// UserA is the user that was already waiting.
	UserA string `gorm:"index;not null" json:"userA"`
	// UserB is the user whose request completed the pair.
	UserB            string `gorm:"index;not null" json:"userB"`
	AgreedTopic      string `json:"agreedTopic"`
	AgreedDifficulty string `json:"agreedDifficulty"`
	AgreedTime       int    `json:"agreedTime"`
	// Status is the final session state once resolved, AWAITING_DECISIONS before.
	Status     string     `gorm:"index" json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// BeforeCreate is a GORM hook that assigns a UUID when MatchID is not set.
func (m *MatchRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if m.MatchID == "" {
		m.MatchID = uuid.New().String()
	}
	return
}

// Terms returns the agreed values of the match.
func (m *MatchRecord) Terms() Terms {
	return Terms{Topic: m.AgreedTopic, Difficulty: m.AgreedDifficulty, Time: m.AgreedTime}
}

// Involves reports whether userID is one of the two participants.
func (m *MatchRecord) Involves(userID string) bool {
	return m.UserA == userID || m.UserB == userID
}

// Partner returns the other participant, or "" if userID is not part of the match.
func (m *MatchRecord) Partner(userID string) string {
	switch userID {
	case m.UserA:
		return m.UserB
	case m.UserB:
		return m.UserA
	}
	return ""
}
