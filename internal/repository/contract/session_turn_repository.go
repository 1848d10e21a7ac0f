package contract

import (
	"context"

	"socialbot-be/internal/entity"
	"socialbot-be/internal/repository/specification"
)

type SessionTurnRepository interface {
	// Create ignores a turn that is already recorded.
	Create(ctx context.Context, turn *entity.SessionTurn) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionTurn, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
