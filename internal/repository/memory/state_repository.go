package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/errkind"

	"github.com/patrickmn/go-cache"
)

// StateRepository keeps sessions and user attributes in process memory.
// Sessions are stored encoded so callers never share state.
type StateRepository struct {
	mu       sync.Mutex
	sessions *cache.Cache
	users    *cache.Cache
}

// NewStateRepository expires sessions after ttl; user attributes never expire.
func NewStateRepository(ttl time.Duration) *StateRepository {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &StateRepository{
		sessions: cache.New(ttl, 10*time.Minute),
		users:    cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

type storedSession struct {
	creationTime string
	data         []byte
}

func (r *StateRepository) LoadSession(_ context.Context, sessionID, expected string) (*dialog.SessionState, error) {
	x, found := r.sessions.Get(sessionID)
	if !found {
		return nil, fmt.Errorf("session %s: %w", sessionID, errkind.ErrNotFound)
	}
	stored := x.(storedSession)
	if stored.creationTime != expected {
		return nil, fmt.Errorf("session %s is at %s, not %s: %w", sessionID, stored.creationTime, expected, errkind.ErrStaleRead)
	}
	return dialog.DecodeSessionState(stored.data)
}

func (r *StateRepository) SaveSession(_ context.Context, s *dialog.SessionState, previous string) error {
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("%w: %w", errkind.ErrPersistenceFailure, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := ""
	if x, found := r.sessions.Get(s.SessionID); found {
		current = x.(storedSession).creationTime
	}
	switch current {
	case s.CreationTime:
		return nil
	case previous:
		r.sessions.Set(s.SessionID, storedSession{creationTime: s.CreationTime, data: data}, cache.DefaultExpiration)
		return nil
	default:
		return fmt.Errorf("%w: session %s moved to %s: %w", errkind.ErrPersistenceFailure, s.SessionID, current, errkind.ErrStaleRead)
	}
}

func (r *StateRepository) LoadUser(_ context.Context, userID string) (attributes.Bag, error) {
	x, found := r.users.Get(userID)
	if !found {
		return attributes.Bag{}, nil
	}
	return x.(attributes.Bag).Clone(), nil
}

func (r *StateRepository) MergeUser(_ context.Context, userID string, delta attributes.Bag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := attributes.Bag{}
	if x, found := r.users.Get(userID); found {
		current = x.(attributes.Bag)
	}
	r.users.Set(userID, current.Merge(delta), cache.NoExpiration)
	return nil
}
