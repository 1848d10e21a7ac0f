package unitofwork

import (
	"context"

	"socialbot-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionStateRepository() contract.SessionStateRepository
	UserAttributesRepository() contract.UserAttributesRepository
	SessionTurnRepository() contract.SessionTurnRepository
}
