package repository

import (
	"context"

	"electivas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgramOccupancy is the number of seat-occupying requests held by one program's students.
type ProgramOccupancy struct {
	ProgramID uuid.UUID
	Occupied  int64
}

type QuotaRepository interface {
	Save(ctx context.Context, quota *model.ProgramQuota) error
	FindByElectiveAndProgram(ctx context.Context, electiveID, programID uuid.UUID) (*model.ProgramQuota, error)
	FindByElectiveAndProgramForUpdate(ctx context.Context, electiveID, programID uuid.UUID) (*model.ProgramQuota, error)
	ListByElective(ctx context.Context, electiveID uuid.UUID) ([]model.ProgramQuota, error)
	CountOccupied(ctx context.Context, electiveID, programID uuid.UUID, states []model.RequestState) (int64, error)
	CountOccupiedByProgram(ctx context.Context, electiveID uuid.UUID, states []model.RequestState) ([]ProgramOccupancy, error)
}

type quotaRepository struct {
	db *gorm.DB
}

func NewQuotaRepository(db *gorm.DB) QuotaRepository {
	return &quotaRepository{db: db}
}

func (r *quotaRepository) Save(ctx context.Context, quota *model.ProgramQuota) error {
	if quota.ID == uuid.Nil {
		return GetDB(ctx, r.db).Create(quota).Error
	}
	return GetDB(ctx, r.db).Save(quota).Error
}

func (r *quotaRepository) FindByElectiveAndProgram(ctx context.Context, electiveID, programID uuid.UUID) (*model.ProgramQuota, error) {
	var quota model.ProgramQuota
	if err := GetDB(ctx, r.db).
		Where("elective_id = ? AND program_id = ?", electiveID, programID).
		First(&quota).Error; err != nil {
		return nil, err
	}
	return &quota, nil
}

// FindByElectiveAndProgramForUpdate row-locks the quota so admission decisions on the
// same (elective, program) bucket are serialized.
func (r *quotaRepository) FindByElectiveAndProgramForUpdate(ctx context.Context, electiveID, programID uuid.UUID) (*model.ProgramQuota, error) {
	var quota model.ProgramQuota
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("elective_id = ? AND program_id = ?", electiveID, programID).
		First(&quota).Error; err != nil {
		return nil, err
	}
	return &quota, nil
}

func (r *quotaRepository) ListByElective(ctx context.Context, electiveID uuid.UUID) ([]model.ProgramQuota, error) {
	var quotas []model.ProgramQuota
	if err := GetDB(ctx, r.db).Preload("Program").
		Where("elective_id = ?", electiveID).
		Order("created_at ASC").
		Find(&quotas).Error; err != nil {
		return nil, err
	}
	return quotas, nil
}

func (r *quotaRepository) CountOccupied(ctx context.Context, electiveID, programID uuid.UUID, states []model.RequestState) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.EnrollmentRequest{}).
		Joins("JOIN users ON users.id = enrollment_requests.student_id").
		Where("enrollment_requests.elective_id = ? AND users.program_id = ? AND enrollment_requests.state IN ?", electiveID, programID, states).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *quotaRepository) CountOccupiedByProgram(ctx context.Context, electiveID uuid.UUID, states []model.RequestState) ([]ProgramOccupancy, error) {
	var rows []ProgramOccupancy
	if err := GetDB(ctx, r.db).Table("enrollment_requests").
		Select("users.program_id AS program_id, COUNT(*) AS occupied").
		Joins("JOIN users ON users.id = enrollment_requests.student_id").
		Where("enrollment_requests.elective_id = ? AND enrollment_requests.state IN ? AND users.program_id IS NOT NULL", electiveID, states).
		Group("users.program_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
