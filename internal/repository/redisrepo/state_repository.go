// Package redisrepo stores sessions and user attributes in Redis. Session
// writes are optimistic: the version check and the write run in one
// WATCH/MULTI transaction.
package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/errkind"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "socialbot:session:"
	userPrefix    = "socialbot:user:"

	fieldCreationTime = "creation_time"
	fieldState        = "state"

	mergeAttempts = 3
)

type StateRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStateRepository expires idle sessions after ttl. User attributes do not
// expire.
func NewStateRepository(rdb *redis.Client, ttl time.Duration) *StateRepository {
	return &StateRepository{rdb: rdb, ttl: ttl}
}

func (r *StateRepository) LoadSession(ctx context.Context, sessionID, expected string) (*dialog.SessionState, error) {
	vals, err := r.rdb.HMGet(ctx, sessionPrefix+sessionID, fieldCreationTime, fieldState).Result()
	if err != nil {
		return nil, persistence("load session", err)
	}
	current, _ := vals[0].(string)
	data, _ := vals[1].(string)
	if current == "" {
		return nil, fmt.Errorf("session %s: %w", sessionID, errkind.ErrNotFound)
	}
	if current != expected {
		return nil, fmt.Errorf("session %s is at %s, not %s: %w", sessionID, current, expected, errkind.ErrStaleRead)
	}
	return dialog.DecodeSessionState([]byte(data))
}

func (r *StateRepository) SaveSession(ctx context.Context, s *dialog.SessionState, previous string) error {
	data, err := s.Encode()
	if err != nil {
		return persistence("encode session", err)
	}
	key := sessionPrefix + s.SessionID

	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldCreationTime).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		switch current {
		case s.CreationTime:
			return nil
		case previous:
		default:
			return fmt.Errorf("session %s moved to %s: %w", s.SessionID, current, errkind.ErrStaleRead)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldCreationTime, s.CreationTime, fieldState, data)
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		err = fmt.Errorf("session %s changed during save: %w", s.SessionID, errkind.ErrStaleRead)
	}
	if err != nil {
		return persistence("save session", err)
	}
	return nil
}

func (r *StateRepository) LoadUser(ctx context.Context, userID string) (attributes.Bag, error) {
	data, err := r.rdb.Get(ctx, userPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return attributes.Bag{}, nil
	}
	if err != nil {
		return nil, persistence("load user", err)
	}
	return attributes.Decode(data)
}

// MergeUser retries when another writer updates the same user concurrently.
func (r *StateRepository) MergeUser(ctx context.Context, userID string, delta attributes.Bag) error {
	key := userPrefix + userID
	var err error
	for i := 0; i < mergeAttempts; i++ {
		err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			current := attributes.Bag{}
			raw, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				if current, err = attributes.Decode(raw); err != nil {
					return err
				}
			}
			merged, err := current.Merge(delta).MarshalJSON()
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, merged, 0)
				return nil
			})
			return err
		}, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return persistence("merge user", err)
	}
	return nil
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", errkind.ErrPersistenceFailure, op, err)
}
