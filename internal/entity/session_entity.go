package entity

import (
	"time"

	"socialbot-be/pkg/attributes"

	"github.com/google/uuid"
)

type SessionState struct {
	SessionId             string
	UserId                string
	LastStateCreationTime string
	NumTurns              int
	ShouldEndSession      bool
	// State is the encoded dialog.SessionState.
	State     []byte
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type UserAttributes struct {
	UserId     string
	Attributes attributes.Bag
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

type SessionTurn struct {
	Id               uuid.UUID
	SessionId        string
	CreationDateTime string
	TurnNum          int
	UserUtterance    string
	BotUtterance     string
	ResponseRG       string
	PromptRG         string
	CreatedAt        time.Time
}
