package handler_test

import (
	"time"

	"peerprep/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveMatch(rec *models.MatchRecord) error {
	return m.Called(rec).Error(0)
}

func (m *MockStorage) CloseMatch(matchID string, status models.SessionState, at time.Time) error {
	return m.Called(matchID, status, at).Error(0)
}

func (m *MockStorage) GetMatchByID(matchID string) (*models.MatchRecord, error) {
	args := m.Called(matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchRecord), args.Error(1)
}

func (m *MockStorage) GetMatchesForUser(userID string, limit int) ([]models.MatchRecord, error) {
	args := m.Called(userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MatchRecord), args.Error(1)
}

func (m *MockStorage) UpsertPreference(pref *models.UserPreference) error {
	return m.Called(pref).Error(0)
}

func (m *MockStorage) GetPreference(userID string) (*models.UserPreference, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPreference), args.Error(1)
}

func (m *MockStorage) DeletePreference(userID string) error {
	return m.Called(userID).Error(0)
}

func (m *MockStorage) PublishEvent(ev models.MatchEvent) error {
	return m.Called(ev).Error(0)
}

func (m *MockStorage) SubscribeEvents() *redis.PubSub {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}

func (m *MockStorage) AddUserToSearchQueue(userID string) error {
	return m.Called(userID).Error(0)
}

func (m *MockStorage) RemoveUserFromSearchQueue(userID string) error {
	return m.Called(userID).Error(0)
}

func (m *MockStorage) GetSearchingUsers() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
