package matching_test

import (
	"testing"
	"time"

	"peerprep/backend/internal/matching"
	"peerprep/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompatible(t *testing.T) {
	base := prefsFor(t, "a", []string{"array", "graph"}, []string{"Easy"}, 10, 60)

	tests := []struct {
		name  string
		other models.PreferenceSet
		want  bool
	}{
		{"shared everything", prefsFor(t, "b", []string{"graph"}, []string{"Easy", "Hard"}, 20, 30), true},
		{"no common topic", prefsFor(t, "b", []string{"tree"}, []string{"Easy"}, 10, 60), false},
		{"no common difficulty", prefsFor(t, "b", []string{"array"}, []string{"Hard"}, 10, 60), false},
		{"disjoint time", prefsFor(t, "b", []string{"array"}, []string{"Easy"}, 61, 90), false},
		{"touching time", prefsFor(t, "b", []string{"array"}, []string{"Easy"}, 60, 90), true},
		{"contained time", prefsFor(t, "b", []string{"array"}, []string{"Easy"}, 1, 100), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matching.Compatible(base, tt.other))
			assert.Equal(t, tt.want, matching.Compatible(tt.other, base), "compatibility must be symmetric")
		})
	}
}

func TestAgree_ArrayEasyScenario(t *testing.T) {
	a := prefsFor(t, "A", []string{"array"}, []string{"Easy"}, 10, 60)
	b := prefsFor(t, "B", []string{"array", "tree"}, []string{"Easy", "Medium"}, 30, 90)

	terms, ok := matching.Agree(a, b)
	require.True(t, ok)

	assert.Equal(t, "array", terms.Topic)
	assert.Equal(t, "Easy", terms.Difficulty)
	assert.Equal(t, 45, terms.Time)
	assert.GreaterOrEqual(t, terms.Time, 30)
	assert.LessOrEqual(t, terms.Time, 60)
}

func TestAgree_PicksSmallestCommonValues(t *testing.T) {
	a := prefsFor(t, "A", []string{"tree", "graph", "array"}, []string{"Medium", "Easy"}, 5, 5)
	b := prefsFor(t, "B", []string{"tree", "graph"}, []string{"Medium", "Easy", "Hard"}, 1, 9)

	terms, ok := matching.Agree(a, b)
	require.True(t, ok)

	assert.Equal(t, models.Terms{Topic: "graph", Difficulty: "Easy", Time: 5}, terms)
}

func TestSelectPartner_EarliestThenUserID(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	req := arrayEasy(t, "req")

	late := &matching.WaitingEntry{Preferences: arrayEasy(t, "aaa"), EnqueuedAt: now.Add(time.Second)}
	earlyB := &matching.WaitingEntry{Preferences: arrayEasy(t, "bob"), EnqueuedAt: now}
	earlyA := &matching.WaitingEntry{Preferences: arrayEasy(t, "alice"), EnqueuedAt: now}
	incompatible := &matching.WaitingEntry{
		Preferences: prefsFor(t, "zed", []string{"dp"}, []string{"Easy"}, 10, 60),
		EnqueuedAt:  now.Add(-time.Hour),
	}
	self := &matching.WaitingEntry{Preferences: arrayEasy(t, "req"), EnqueuedAt: now.Add(-time.Hour)}

	got, ok := matching.SelectPartner(req, []*matching.WaitingEntry{late, earlyB, incompatible, self, earlyA})
	require.True(t, ok)
	assert.Equal(t, "alice", got.UserID())

	_, ok = matching.SelectPartner(req, []*matching.WaitingEntry{incompatible, self})
	assert.False(t, ok)
}
