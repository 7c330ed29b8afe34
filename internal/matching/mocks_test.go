package matching_test

import (
	"context"
	"time"

	"peerprep/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockRecorder is a testify mock of matching.Recorder.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordMatch(ctx context.Context, rec models.MatchRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockRecorder) RecordResolution(ctx context.Context, matchID string, state models.SessionState, at time.Time) error {
	args := m.Called(matchID, state)
	return args.Error(0)
}

func (m *MockRecorder) RecordWaiting(ctx context.Context, userID string, waiting bool) error {
	args := m.Called(userID, waiting)
	return args.Error(0)
}

// MockNotifier is a testify mock of matching.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ev models.MatchEvent) {
	m.Called(ev)
}

func newMockRecorder() *MockRecorder {
	r := new(MockRecorder)
	r.On("RecordMatch", mock.Anything).Return(nil).Maybe()
	r.On("RecordResolution", mock.Anything, mock.Anything).Return(nil).Maybe()
	r.On("RecordWaiting", mock.Anything, mock.Anything).Return(nil).Maybe()
	return r
}

func newMockNotifier() *MockNotifier {
	n := new(MockNotifier)
	n.On("Notify", mock.Anything).Return().Maybe()
	return n
}
