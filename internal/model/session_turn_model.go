package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionTurn is the append-only log of finished turns. The unique index on
// (session_id, creation_date_time) makes repeated saves of a turn harmless.
type SessionTurn struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId        string    `gorm:"type:text;not null;uniqueIndex:idx_session_turn"`
	CreationDateTime string    `gorm:"type:text;not null;uniqueIndex:idx_session_turn"`
	TurnNum          int       `gorm:"not null"`
	UserUtterance    string    `gorm:"type:text"`
	BotUtterance     string    `gorm:"type:text;not null"`
	ResponseRG       string    `gorm:"column:response_rg;type:text"`
	PromptRG         string    `gorm:"column:prompt_rg;type:text"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (SessionTurn) TableName() string {
	return "session_turns"
}
