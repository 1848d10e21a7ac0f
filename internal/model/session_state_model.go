package model

import (
	"time"

	"gorm.io/datatypes"
)

// SessionState holds the latest state of one conversation.
// LastStateCreationTime is the optimistic-concurrency token.
type SessionState struct {
	SessionId             string         `gorm:"type:text;primaryKey"`
	UserId                string         `gorm:"type:text;not null;index"`
	LastStateCreationTime string         `gorm:"type:text;not null"`
	NumTurns              int            `gorm:"not null;default:0"`
	ShouldEndSession      bool           `gorm:"not null;default:false"`
	State                 datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt             time.Time      `gorm:"autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime"`
}

func (SessionState) TableName() string {
	return "session_states"
}
