package dialog

import (
	"context"
	"time"

	"socialbot-be/pkg/attributes"
)

// Store persists sessions and user attributes.
//
// LoadSession fails with errkind.ErrNotFound when the session does not exist
// and errkind.ErrStaleRead when its latest creation time differs from
// expected. SaveSession only succeeds when the stored creation time still
// equals previous ("" for a new session); saving the same state twice is a
// no-op.
type Store interface {
	LoadSession(ctx context.Context, sessionID, expected string) (*SessionState, error)
	SaveSession(ctx context.Context, s *SessionState, previous string) error
	LoadUser(ctx context.Context, userID string) (attributes.Bag, error)
	MergeUser(ctx context.Context, userID string, delta attributes.Bag) error
}

// TurnEvent describes a completed turn.
type TurnEvent struct {
	SessionID        string        `json:"session_id"`
	UserID           string        `json:"user_id"`
	TurnNum          int           `json:"turn_num"`
	ResponseRG       string        `json:"response_rg"`
	PromptRG         string        `json:"prompt_rg,omitempty"`
	CreationTime     string        `json:"creation_date_time"`
	ShouldEndSession bool          `json:"should_end_session"`
	Latency          time.Duration `json:"latency"`
}

// TurnObserver is told about every completed turn.
type TurnObserver interface {
	TurnCompleted(ctx context.Context, ev TurnEvent)
}
