package repository

import (
	"context"

	"electivas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ElectiveRepository interface {
	Create(ctx context.Context, elective *model.Elective) error
	Update(ctx context.Context, elective *model.Elective) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Elective, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Elective, error)
	FindByName(ctx context.Context, name string) (*model.Elective, error)
	List(ctx context.Context, state model.ElectiveState, page, limit int) ([]model.Elective, int64, error)
	CountByState(ctx context.Context, state model.ElectiveState) (int64, error)
}

type electiveRepository struct {
	db *gorm.DB
}

func NewElectiveRepository(db *gorm.DB) ElectiveRepository {
	return &electiveRepository{db: db}
}

func (r *electiveRepository) Create(ctx context.Context, elective *model.Elective) error {
	return GetDB(ctx, r.db).Create(elective).Error
}

func (r *electiveRepository) Update(ctx context.Context, elective *model.Elective) error {
	return GetDB(ctx, r.db).Save(elective).Error
}

func (r *electiveRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Elective, error) {
	var elective model.Elective
	if err := GetDB(ctx, r.db).First(&elective, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &elective, nil
}

func (r *electiveRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Elective, error) {
	var elective model.Elective
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&elective).Error; err != nil {
		return nil, err
	}
	return &elective, nil
}

func (r *electiveRepository) FindByName(ctx context.Context, name string) (*model.Elective, error) {
	var elective model.Elective
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&elective).Error; err != nil {
		return nil, err
	}
	return &elective, nil
}

func (r *electiveRepository) List(ctx context.Context, state model.ElectiveState, page, limit int) ([]model.Elective, int64, error) {
	var electives []model.Elective
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Elective{})
	if state != "" {
		db = db.Where("state = ?", state)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&electives).Error; err != nil {
		return nil, 0, err
	}

	return electives, total, nil
}

func (r *electiveRepository) CountByState(ctx context.Context, state model.ElectiveState) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Elective{}).Where("state = ?", state).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
