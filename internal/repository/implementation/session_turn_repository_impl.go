package implementation

import (
	"context"

	"socialbot-be/internal/entity"
	"socialbot-be/internal/mapper"
	"socialbot-be/internal/model"
	"socialbot-be/internal/repository/contract"
	"socialbot-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionTurnRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionTurnRepository(db *gorm.DB) contract.SessionTurnRepository {
	return &SessionTurnRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionTurnRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionTurnRepositoryImpl) Create(ctx context.Context, turn *entity.SessionTurn) error {
	m := r.mapper.SessionTurnToModel(turn)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}, {Name: "creation_date_time"}}, DoNothing: true}).
		Create(m).Error
	if err != nil {
		return err
	}
	*turn = *r.mapper.SessionTurnToEntity(m)
	return nil
}

func (r *SessionTurnRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionTurn, error) {
	var models []*model.SessionTurn
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.SessionTurnsToEntities(models), nil
}

func (r *SessionTurnRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.SessionTurn{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
