package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"golang.org/x/text/unicode/norm"
)

// PreferenceRequest is the wire shape of a user's matching preferences.
// It is what clients send and what a matched partner is shown.
type PreferenceRequest struct {
	UserID       string   `json:"userId,omitempty"`
	Topics       []string `json:"topics"`
	Difficulties []string `json:"difficulties"`
	MinTime      int      `json:"minTime"`
	MaxTime      int      `json:"maxTime"`
}

// ValidationError reports a malformed or contradictory preference request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid preferences: %s %s", e.Field, e.Reason)
}

// PreferenceSet is a normalized, immutable matching request made by one user.
// The zero value is not usable; build one with NewPreferenceSet.
type PreferenceSet struct {
	userID       string
	topics       []string
	difficulties []string
	minTime      int
	maxTime      int
}

// NewPreferenceSet normalizes and validates a request.
// Topic and difficulty labels are trimmed, NFC-normalized, de-duplicated and sorted.
func NewPreferenceSet(req PreferenceRequest) (PreferenceSet, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return PreferenceSet{}, &ValidationError{Field: "userId", Reason: "cannot be empty"}
	}

	topics := normalizeLabels(req.Topics)
	if len(topics) == 0 {
		return PreferenceSet{}, &ValidationError{Field: "topics", Reason: "cannot be empty"}
	}
	difficulties := normalizeLabels(req.Difficulties)
	if len(difficulties) == 0 {
		return PreferenceSet{}, &ValidationError{Field: "difficulties", Reason: "cannot be empty"}
	}

	if req.MinTime <= 0 {
		return PreferenceSet{}, &ValidationError{Field: "minTime", Reason: "must be > 0"}
	}
	if req.MaxTime <= 0 {
		return PreferenceSet{}, &ValidationError{Field: "maxTime", Reason: "must be > 0"}
	}
	if req.MinTime > req.MaxTime {
		return PreferenceSet{}, &ValidationError{Field: "minTime", Reason: "must not exceed maxTime"}
	}

	return PreferenceSet{
		userID:       userID,
		topics:       topics,
		difficulties: difficulties,
		minTime:      req.MinTime,
		maxTime:      req.MaxTime,
	}, nil
}

func normalizeLabels(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = norm.NFC.String(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (p PreferenceSet) UserID() string { return p.userID }
func (p PreferenceSet) MinTime() int   { return p.minTime }
func (p PreferenceSet) MaxTime() int   { return p.maxTime }

// Topics returns a sorted copy of the topic labels.
func (p PreferenceSet) Topics() []string { return append([]string(nil), p.topics...) }

// Difficulties returns a sorted copy of the difficulty labels.
func (p PreferenceSet) Difficulties() []string { return append([]string(nil), p.difficulties...) }

// IsZero reports whether p was never built through NewPreferenceSet.
func (p PreferenceSet) IsZero() bool { return p.userID == "" }

// Request converts the set back into its wire shape.
func (p PreferenceSet) Request() PreferenceRequest {
	return PreferenceRequest{
		UserID:       p.userID,
		Topics:       p.Topics(),
		Difficulties: p.Difficulties(),
		MinTime:      p.minTime,
		MaxTime:      p.maxTime,
	}
}

func (p PreferenceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Request())
}

// UserPreference is the saved preference of a user in PostgreSQL.
// It lets a client re-request a match without resending its choices.
type UserPreference struct {
	// UserID is the owner of the preference.
	UserID string `gorm:"primaryKey" json:"userId"`
	// Topics holds the topic labels as a PostgreSQL text array.
	Topics pq.StringArray `gorm:"type:text[]" json:"topics"`
	// Difficulties holds the difficulty labels as a PostgreSQL text array.
	Difficulties pq.StringArray `gorm:"type:text[]" json:"difficulties"`
	MinTime      int            `json:"minTime"`
	MaxTime      int            `json:"maxTime"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// ToUserPreference converts a validated set into its stored form.
func (p PreferenceSet) ToUserPreference() *UserPreference {
	return &UserPreference{
		UserID:       p.userID,
		Topics:       pq.StringArray(p.Topics()),
		Difficulties: pq.StringArray(p.Difficulties()),
		MinTime:      p.minTime,
		MaxTime:      p.maxTime,
	}
}

// PreferenceSet re-validates a stored preference.
func (u *UserPreference) PreferenceSet() (PreferenceSet, error) {
	return NewPreferenceSet(PreferenceRequest{
		UserID:       u.UserID,
		Topics:       []string(u.Topics),
		Difficulties: []string(u.Difficulties),
		MinTime:      u.MinTime,
		MaxTime:      u.MaxTime,
	})
}
