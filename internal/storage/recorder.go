package storage

import (
	"context"
	"errors"
	"time"

	"peerprep/backend/internal/models"
)

// EventRecorder persists coordinator events: match records in PostgreSQL and
// the search queue mirror in Redis.
type EventRecorder struct {
	Store *Service
}

func NewEventRecorder(s *Service) *EventRecorder {
	return &EventRecorder{Store: s}
}

func (r *EventRecorder) RecordMatch(ctx context.Context, rec models.MatchRecord) error {
	s := r.Store.WithContext(ctx)
	err := s.SaveMatch(&rec)
	for _, userID := range []string{rec.UserA, rec.UserB} {
		err = errors.Join(err, s.RemoveUserFromSearchQueue(userID))
	}
	return err
}

func (r *EventRecorder) RecordResolution(ctx context.Context, matchID string, state models.SessionState, at time.Time) error {
	return r.Store.WithContext(ctx).CloseMatch(matchID, state, at)
}

func (r *EventRecorder) RecordWaiting(ctx context.Context, userID string, waiting bool) error {
	s := r.Store.WithContext(ctx)
	if waiting {
		return s.AddUserToSearchQueue(userID)
	}
	return s.RemoveUserFromSearchQueue(userID)
}
