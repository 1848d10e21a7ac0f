package contract

import (
	"context"

	"socialbot-be/internal/entity"
	"socialbot-be/internal/repository/specification"
)

type UserAttributesRepository interface {
	Create(ctx context.Context, user *entity.UserAttributes) error
	Update(ctx context.Context, user *entity.UserAttributes) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserAttributes, error)
}
