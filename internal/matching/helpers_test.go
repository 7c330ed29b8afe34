package matching_test

import (
	"testing"

	"peerprep/backend/internal/models"

	"github.com/stretchr/testify/require"
)

func prefsFor(t *testing.T, userID string, topics, difficulties []string, minTime, maxTime int) models.PreferenceSet {
	t.Helper()
	p, err := models.NewPreferenceSet(models.PreferenceRequest{
		UserID:       userID,
		Topics:       topics,
		Difficulties: difficulties,
		MinTime:      minTime,
		MaxTime:      maxTime,
	})
	require.NoError(t, err)
	return p
}

// arrayEasy is the canonical compatible request used across the tests.
func arrayEasy(t *testing.T, userID string) models.PreferenceSet {
	return prefsFor(t, userID, []string{"array"}, []string{"Easy"}, 10, 60)
}
