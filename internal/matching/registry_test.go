package matching_test

import (
	"testing"
	"time"

	"peerprep/backend/internal/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitRegistry_EnqueueReplaces(t *testing.T) {
	r := matching.NewWaitRegistry()
	now := time.Now()

	first, replaced, err := r.Enqueue(arrayEasy(t, "A"), now)
	require.NoError(t, err)
	assert.Nil(t, replaced)

	second, replaced, err := r.Enqueue(prefsFor(t, "A", []string{"tree"}, []string{"Hard"}, 5, 10), now.Add(time.Second))
	require.NoError(t, err)
	assert.Same(t, first, replaced)
	assert.Equal(t, 1, r.Len(), "a user owns at most one entry")

	got, ok := r.Lookup("A")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, []string{"tree"}, got.Preferences.Topics())
}

func TestWaitRegistry_RemoveIsIdempotent(t *testing.T) {
	r := matching.NewWaitRegistry()
	_, _, err := r.Enqueue(arrayEasy(t, "A"), time.Now())
	require.NoError(t, err)

	assert.True(t, r.Remove("A"))
	assert.False(t, r.Remove("A"))
	assert.False(t, r.Remove("nobody"))
	assert.Zero(t, r.Len())
}

func TestWaitRegistry_AlreadyMatched(t *testing.T) {
	r := matching.NewWaitRegistry()
	r.MarkMatched("A", "m1")

	_, _, err := r.Enqueue(arrayEasy(t, "A"), time.Now())
	assert.ErrorIs(t, err, matching.ErrAlreadyMatched)

	assert.False(t, r.Release("A", "other"), "stale release must be ignored")
	id, ok := r.MatchOf("A")
	require.True(t, ok)
	assert.Equal(t, "m1", id)

	assert.True(t, r.Release("A", "m1"))
	_, _, err = r.Enqueue(arrayEasy(t, "A"), time.Now())
	assert.NoError(t, err)
}

func TestWaitRegistry_FindCompatible(t *testing.T) {
	r := matching.NewWaitRegistry()
	now := time.Now()

	_, _, _ = r.Enqueue(prefsFor(t, "dp-fan", []string{"dp"}, []string{"Easy"}, 10, 60), now)
	_, _, _ = r.Enqueue(arrayEasy(t, "B"), now.Add(time.Second))
	_, _, _ = r.Enqueue(arrayEasy(t, "A"), now.Add(2*time.Second))

	got, ok := r.FindCompatible(arrayEasy(t, "A"), "A")
	require.True(t, ok)
	assert.Equal(t, "B", got.UserID())
	assert.Equal(t, 3, r.Len(), "FindCompatible must not modify the table")

	r.MarkMatched("B", "m1")
	_, ok = r.FindCompatible(arrayEasy(t, "A"), "A")
	assert.False(t, ok)
}

func TestWaitRegistry_ExpiredOldestFirst(t *testing.T) {
	r := matching.NewWaitRegistry()
	now := time.Now()

	_, _, _ = r.Enqueue(arrayEasy(t, "young"), now.Add(-time.Second))
	_, _, _ = r.Enqueue(arrayEasy(t, "old"), now.Add(-3*time.Minute))
	_, _, _ = r.Enqueue(arrayEasy(t, "older"), now.Add(-5*time.Minute))

	expired := r.Expired(now, 2*time.Minute)
	require.Len(t, expired, 2)
	assert.Equal(t, "older", expired[0].UserID())
	assert.Equal(t, "old", expired[1].UserID())

	waiting := r.Waiting()
	require.Len(t, waiting, 3)
	assert.Equal(t, "young", waiting[2].UserID())
}
