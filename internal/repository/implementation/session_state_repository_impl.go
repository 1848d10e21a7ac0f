package implementation

import (
	"context"
	"errors"

	"socialbot-be/internal/entity"
	"socialbot-be/internal/mapper"
	"socialbot-be/internal/model"
	"socialbot-be/internal/repository/contract"
	"socialbot-be/internal/repository/specification"

	"gorm.io/gorm"
)

type SessionStateRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionStateRepository(db *gorm.DB) contract.SessionStateRepository {
	return &SessionStateRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionStateRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionStateRepositoryImpl) Create(ctx context.Context, state *entity.SessionState) error {
	m := r.mapper.SessionStateToModel(state)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*state = *r.mapper.SessionStateToEntity(m)
	return nil
}

func (r *SessionStateRepositoryImpl) Update(ctx context.Context, state *entity.SessionState) error {
	m := r.mapper.SessionStateToModel(state)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*state = *r.mapper.SessionStateToEntity(m)
	return nil
}

func (r *SessionStateRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionState, error) {
	var m model.SessionState
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionStateToEntity(&m), nil
}
