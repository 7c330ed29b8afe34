package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"peerprep/backend/internal/config"
	"peerprep/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrPreferenceNotFound = errors.New("preference not found")
	ErrRedisUnavailable   = errors.New("redis is not configured")
)

// Storage is everything the service persists outside the coordinator's memory.
type Storage interface {
	SaveMatch(rec *models.MatchRecord) error
	CloseMatch(matchID string, status models.SessionState, at time.Time) error
	GetMatchByID(matchID string) (*models.MatchRecord, error)
	GetMatchesForUser(userID string, limit int) ([]models.MatchRecord, error)

	UpsertPreference(pref *models.UserPreference) error
	GetPreference(userID string) (*models.UserPreference, error)
	DeletePreference(userID string) error

	PublishEvent(ev models.MatchEvent) error
	SubscribeEvents() *redis.PubSub

	AddUserToSearchQueue(userID string) error
	RemoveUserFromSearchQueue(userID string) error
	GetSearchingUsers() ([]string, error)
}

// Service implements Storage on PostgreSQL (gorm) and Redis. Redis is
// optional: without it the queue mirror and cache are skipped.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// WithContext returns a copy of s bound to ctx.
func (s *Service) WithContext(ctx context.Context) *Service {
	return &Service{
		DB:    s.DB.WithContext(ctx),
		Redis: s.Redis,
		Ctx:   ctx,
	}
}

// Migrate creates or updates the tables.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(&models.MatchRecord{}, &models.UserPreference{})
}

// SaveMatch stores a new pairing.
func (s *Service) SaveMatch(rec *models.MatchRecord) error {
	if err := s.DB.Create(rec).Error; err != nil {
		log.Printf("ERROR: Failed to save match %s: %v", rec.MatchID, err)
		return err
	}
	return nil
}

// CloseMatch writes the final state of a session.
func (s *Service) CloseMatch(matchID string, status models.SessionState, at time.Time) error {
	result := s.DB.Model(&models.MatchRecord{}).
		Where("match_id = ?", matchID).
		Updates(map[string]interface{}{
			"status":      string(status),
			"resolved_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (s *Service) GetMatchByID(matchID string) (*models.MatchRecord, error) {
	var rec models.MatchRecord

	err := s.DB.Where("match_id = ?", matchID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get match %s: %v", matchID, err)
		return nil, err
	}
	return &rec, nil
}

// GetMatchesForUser returns the user's matches, newest first. limit <= 0 means no limit.
func (s *Service) GetMatchesForUser(userID string, limit int) ([]models.MatchRecord, error) {
	var history []models.MatchRecord

	q := s.DB.Where("user_a = ? OR user_b = ?", userID, userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&history).Error; err != nil {
		log.Printf("ERROR: Failed to get match history for %s: %v", userID, err)
		return nil, err
	}
	return history, nil
}

// UpsertPreference saves the user's preference and drops the cached copy.
func (s *Service) UpsertPreference(pref *models.UserPreference) error {
	if err := s.DB.Save(pref).Error; err != nil {
		return err
	}
	s.dropCachedPreference(pref.UserID)
	return nil
}

// GetPreference reads the saved preference, going through the Redis cache when available.
func (s *Service) GetPreference(userID string) (*models.UserPreference, error) {
	if pref, ok := s.cachedPreference(userID); ok {
		return pref, nil
	}

	var pref models.UserPreference
	err := s.DB.Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPreferenceNotFound
	}
	if err != nil {
		return nil, err
	}

	s.cachePreference(&pref)
	return &pref, nil
}

func (s *Service) DeletePreference(userID string) error {
	result := s.DB.Where("user_id = ?", userID).Delete(&models.UserPreference{})
	if result.Error != nil {
		return result.Error
	}
	s.dropCachedPreference(userID)
	if result.RowsAffected == 0 {
		return ErrPreferenceNotFound
	}
	return nil
}

func preferenceKey(userID string) string {
	return config.PreferenceKeyPrefix + userID
}

func (s *Service) cachedPreference(userID string) (*models.UserPreference, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(s.Ctx, preferenceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Printf("WARNING: Preference cache read failed for %s: %v", userID, err)
		return nil, false
	}

	var pref models.UserPreference
	if err := json.Unmarshal(raw, &pref); err != nil {
		log.Printf("WARNING: Dropping corrupt cached preference for %s: %v", userID, err)
		s.dropCachedPreference(userID)
		return nil, false
	}
	return &pref, true
}

func (s *Service) cachePreference(pref *models.UserPreference) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(pref)
	if err != nil {
		return
	}
	if err := s.Redis.Set(s.Ctx, preferenceKey(pref.UserID), raw, config.PreferenceCacheTTL).Err(); err != nil {
		log.Printf("WARNING: Preference cache write failed for %s: %v", pref.UserID, err)
	}
}

func (s *Service) dropCachedPreference(userID string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(s.Ctx, preferenceKey(userID)).Err(); err != nil {
		log.Printf("WARNING: Preference cache delete failed for %s: %v", userID, err)
	}
}

// PublishEvent fans an event out to every instance through Redis Pub/Sub.
func (s *Service) PublishEvent(ev models.MatchEvent) error {
	if s.Redis == nil {
		return ErrRedisUnavailable
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return retryOp(defaultRetryConfig, func() error {
		return s.Redis.Publish(s.Ctx, config.MatchEventsChannel, payload).Err()
	})
}

// SubscribeEvents subscribes to the match event channel. It returns nil without Redis.
func (s *Service) SubscribeEvents() *redis.PubSub {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Subscribe(s.Ctx, config.MatchEventsChannel)
}

// AddUserToSearchQueue adds the user to the Redis mirror of the search queue.
func (s *Service) AddUserToSearchQueue(userID string) error {
	if s.Redis == nil {
		return nil
	}
	return retryOp(defaultRetryConfig, func() error {
		return s.Redis.SAdd(s.Ctx, config.SearchQueueKey, userID).Err()
	})
}

// RemoveUserFromSearchQueue removes the user from the Redis mirror of the search queue.
func (s *Service) RemoveUserFromSearchQueue(userID string) error {
	if s.Redis == nil {
		return nil
	}
	return retryOp(defaultRetryConfig, func() error {
		return s.Redis.SRem(s.Ctx, config.SearchQueueKey, userID).Err()
	})
}

// GetSearchingUsers returns every user the mirror lists as searching.
func (s *Service) GetSearchingUsers() ([]string, error) {
	if s.Redis == nil {
		return nil, ErrRedisUnavailable
	}
	return s.Redis.SMembers(s.Ctx, config.SearchQueueKey).Result()
}
