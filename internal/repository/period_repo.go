package repository

import (
	"context"

	"electivas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PeriodRepository interface {
	Create(ctx context.Context, period *model.AcademicPeriod) error
	Update(ctx context.Context, period *model.AcademicPeriod) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AcademicPeriod, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.AcademicPeriod, error)
	FindCurrent(ctx context.Context) (*model.AcademicPeriod, error)
	List(ctx context.Context) ([]model.AcademicPeriod, error)
	ExistsActiveByName(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)
	CountActiveInStates(ctx context.Context, states []model.PeriodState, excludeID uuid.UUID) (int64, error)
	LockLifecycle(ctx context.Context) error
}

type periodRepository struct {
	db *gorm.DB
}

func NewPeriodRepository(db *gorm.DB) PeriodRepository {
	return &periodRepository{db: db}
}

func (r *periodRepository) Create(ctx context.Context, period *model.AcademicPeriod) error {
	return GetDB(ctx, r.db).Create(period).Error
}

func (r *periodRepository) Update(ctx context.Context, period *model.AcademicPeriod) error {
	return GetDB(ctx, r.db).Save(period).Error
}

func (r *periodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.AcademicPeriod{}).Error
}

func (r *periodRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AcademicPeriod, error) {
	var period model.AcademicPeriod
	if err := GetDB(ctx, r.db).First(&period, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.AcademicPeriod, error) {
	var period model.AcademicPeriod
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&period).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

// FindCurrent returns the most recent active period open for enrollment.
func (r *periodRepository) FindCurrent(ctx context.Context) (*model.AcademicPeriod, error) {
	var period model.AcademicPeriod
	if err := GetDB(ctx, r.db).
		Where("state = ? AND active = ?", model.PeriodInscripcion, true).
		Order("start_date DESC").Order("created_at DESC").
		First(&period).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepository) List(ctx context.Context) ([]model.AcademicPeriod, error) {
	var periods []model.AcademicPeriod
	if err := GetDB(ctx, r.db).Order("active DESC").Order("start_date DESC").Find(&periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}

func (r *periodRepository) ExistsActiveByName(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.AcademicPeriod{}).
		Where("name = ? AND active = ? AND id <> ?", name, true, excludeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *periodRepository) CountActiveInStates(ctx context.Context, states []model.PeriodState, excludeID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.AcademicPeriod{}).
		Where("active = ? AND state IN ? AND id <> ?", true, states, excludeID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// LockLifecycle serializes period lifecycle changes until the surrounding transaction ends.
func (r *periodRepository) LockLifecycle(ctx context.Context) error {
	db := GetDB(ctx, r.db)
	if !isPostgres(db) {
		return nil
	}
	return db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "academic_period_lifecycle").Error
}
