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

type UserAttributesRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewUserAttributesRepository(db *gorm.DB) contract.UserAttributesRepository {
	return &UserAttributesRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *UserAttributesRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *UserAttributesRepositoryImpl) Create(ctx context.Context, user *entity.UserAttributes) error {
	m, err := r.mapper.UserAttributesToModel(user)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *UserAttributesRepositoryImpl) Update(ctx context.Context, user *entity.UserAttributes) error {
	m, err := r.mapper.UserAttributesToModel(user)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *UserAttributesRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserAttributes, error) {
	var m model.UserAttributes
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.UserAttributesToEntity(&m)
}
