package models_test

import (
	"peerprep/backend/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStateTerminal(t *testing.T) {
	assert.False(t, models.StateSearching.Terminal())
	assert.False(t, models.StateAwaitingDecisions.Terminal())
	for _, s := range []models.SessionState{models.StateAccepted, models.StateRejected, models.StateTimedOut, models.StateCancelled} {
		assert.True(t, s.Terminal(), s)
	}
}

func TestResolutionWireStatus(t *testing.T) {
	tests := []struct {
		state models.SessionState
		want  string
	}{
		{models.StateAccepted, models.WireSuccess},
		{models.StateRejected, models.WireRejected},
		{models.StateCancelled, models.WireRejected},
		{models.StateTimedOut, models.WireRejected},
		{models.StateAwaitingDecisions, models.WirePending},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, models.Resolution{State: tt.state}.WireStatus())
		})
	}
}

func TestParseDecision(t *testing.T) {
	for _, in := range []string{"accept", "ACCEPT", "Accepted", " accepted "} {
		d, ok := models.ParseDecision(in)
		assert.True(t, ok, in)
		assert.Equal(t, models.DecisionAccepted, d, in)
	}
	d, ok := models.ParseDecision("reJect")
	assert.True(t, ok)
	assert.Equal(t, models.DecisionRejected, d)

	_, ok = models.ParseDecision("maybe")
	assert.False(t, ok)
}
