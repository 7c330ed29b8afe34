package matching

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"peerprep/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestWaiter_ResolvesOnce(t *testing.T) {
	w := newWaiter()
	assert.False(t, w.isResolved())

	assert.True(t, w.resolve(models.Outcome{Status: models.OutcomeMatched, MatchID: "m1"}, time.Now()))
	assert.False(t, w.resolve(models.Outcome{Status: models.OutcomeCancelled}, time.Now()))
	assert.True(t, w.isResolved())

	out, ok := w.claim()
	assert.True(t, ok)
	assert.Equal(t, models.OutcomeMatched, out.Status)
}

func TestWaiter_ClaimedByOneCaller(t *testing.T) {
	w := newWaiter()
	w.resolve(models.Outcome{Status: models.OutcomeTimeout}, time.Now())

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-w.done
			if _, ok := w.claim(); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
