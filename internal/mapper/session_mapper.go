package mapper

import (
	"time"

	"socialbot-be/internal/entity"
	"socialbot-be/internal/model"
	"socialbot-be/pkg/attributes"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

// Session State Mappers

func (m *SessionMapper) SessionStateToEntity(s *model.SessionState) *entity.SessionState {
	if s == nil {
		return nil
	}

	return &entity.SessionState{
		SessionId:             s.SessionId,
		UserId:                s.UserId,
		LastStateCreationTime: s.LastStateCreationTime,
		NumTurns:              s.NumTurns,
		ShouldEndSession:      s.ShouldEndSession,
		State:                 []byte(s.State),
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             optionalTime(s.UpdatedAt),
	}
}

func (m *SessionMapper) SessionStateToModel(s *entity.SessionState) *model.SessionState {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.SessionState{
		SessionId:             s.SessionId,
		UserId:                s.UserId,
		LastStateCreationTime: s.LastStateCreationTime,
		NumTurns:              s.NumTurns,
		ShouldEndSession:      s.ShouldEndSession,
		State:                 datatypes.JSON(s.State),
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             updatedAt,
	}
}

// User Attributes Mappers

func (m *SessionMapper) UserAttributesToEntity(u *model.UserAttributes) (*entity.UserAttributes, error) {
	if u == nil {
		return nil, nil
	}

	bag := attributes.Bag{}
	if len(u.Attributes) > 0 {
		decoded, err := attributes.Decode(u.Attributes)
		if err != nil {
			return nil, err
		}
		bag = decoded
	}

	return &entity.UserAttributes{
		UserId:     u.UserId,
		Attributes: bag,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  optionalTime(u.UpdatedAt),
	}, nil
}

func (m *SessionMapper) UserAttributesToModel(u *entity.UserAttributes) (*model.UserAttributes, error) {
	if u == nil {
		return nil, nil
	}

	data, err := u.Attributes.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if u.UpdatedAt != nil {
		updatedAt = *u.UpdatedAt
	}

	return &model.UserAttributes{
		UserId:     u.UserId,
		Attributes: datatypes.JSON(data),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  updatedAt,
	}, nil
}

// Session Turn Mappers

func (m *SessionMapper) SessionTurnToEntity(t *model.SessionTurn) *entity.SessionTurn {
	if t == nil {
		return nil
	}

	return &entity.SessionTurn{
		Id:               t.Id,
		SessionId:        t.SessionId,
		CreationDateTime: t.CreationDateTime,
		TurnNum:          t.TurnNum,
		UserUtterance:    t.UserUtterance,
		BotUtterance:     t.BotUtterance,
		ResponseRG:       t.ResponseRG,
		PromptRG:         t.PromptRG,
		CreatedAt:        t.CreatedAt,
	}
}

func (m *SessionMapper) SessionTurnToModel(t *entity.SessionTurn) *model.SessionTurn {
	if t == nil {
		return nil
	}

	return &model.SessionTurn{
		Id:               t.Id,
		SessionId:        t.SessionId,
		CreationDateTime: t.CreationDateTime,
		TurnNum:          t.TurnNum,
		UserUtterance:    t.UserUtterance,
		BotUtterance:     t.BotUtterance,
		ResponseRG:       t.ResponseRG,
		PromptRG:         t.PromptRG,
		CreatedAt:        t.CreatedAt,
	}
}

func (m *SessionMapper) SessionTurnsToEntities(turns []*model.SessionTurn) []*entity.SessionTurn {
	out := make([]*entity.SessionTurn, len(turns))
	for i, t := range turns {
		out[i] = m.SessionTurnToEntity(t)
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
