package model

import (
	"time"

	"gorm.io/datatypes"
)

type UserAttributes struct {
	UserId     string         `gorm:"type:text;primaryKey"`
	Attributes datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (UserAttributes) TableName() string {
	return "user_attributes"
}
