package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/lehigh-university-libraries/detreview/internal/models"
)

// SessionStore keeps review sessions in memory. Sessions expire ttl after
// they were last set.
type SessionStore struct {
	sessions *cache.Cache
}

func New(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: cache.New(ttl, 2*ttl),
	}
}

// NewID returns a fresh session id
func NewID() string {
	return uuid.New().String()
}

func (s *SessionStore) Get(sessionID string) (*models.ReviewSession, bool) {
	v, exists := s.sessions.Get(sessionID)
	if !exists {
		return nil, false
	}
	session, ok := v.(*models.ReviewSession)
	return session, ok
}

func (s *SessionStore) Set(sessionID string, session *models.ReviewSession) {
	s.sessions.Set(sessionID, session, cache.DefaultExpiration)
}

func (s *SessionStore) GetAll() map[string]*models.ReviewSession {
	items := s.sessions.Items()
	result := make(map[string]*models.ReviewSession, len(items))
	for k, item := range items {
		if session, ok := item.Object.(*models.ReviewSession); ok {
			result[k] = session
		}
	}
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.sessions.Delete(sessionID)
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	return s.sessions.ItemCount()
}
