package matchhub_test

import (
	"sync/atomic"

	"peerprep/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	userID      string
	RecvChannel chan models.MatchEvent
	closed      atomic.Bool
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan models.MatchEvent, 10),
	}
}

func (c *MockClient) GetUserID() string                        { return c.userID }
func (c *MockClient) GetSendChannel() chan<- models.MatchEvent { return c.RecvChannel }
func (c *MockClient) Run()                                     {}
func (c *MockClient) Close()                                   { c.closed.Store(true) }

// MockCommands is a testify mock of matchhub.Commands.
type MockCommands struct {
	mock.Mock
}

func (m *MockCommands) Accept(userID, matchID string) (models.SessionState, error) {
	args := m.Called(userID, matchID)
	return args.Get(0).(models.SessionState), args.Error(1)
}

func (m *MockCommands) Reject(userID, matchID string) (models.SessionState, error) {
	args := m.Called(userID, matchID)
	return args.Get(0).(models.SessionState), args.Error(1)
}

func (m *MockCommands) Cancel(userID string) models.CancelResult {
	args := m.Called(userID)
	return args.Get(0).(models.CancelResult)
}

// MockPublisher is a testify mock of matchhub.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ev models.MatchEvent) error {
	args := m.Called(ev)
	return args.Error(0)
}

func (m *MockPublisher) SubscribeEvents() *redis.PubSub {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}
