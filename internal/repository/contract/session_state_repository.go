package contract

import (
	"context"

	"socialbot-be/internal/entity"
	"socialbot-be/internal/repository/specification"
)

type SessionStateRepository interface {
	Create(ctx context.Context, state *entity.SessionState) error
	Update(ctx context.Context, state *entity.SessionState) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionState, error)
}
