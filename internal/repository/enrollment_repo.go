package repository

import (
	"context"

	"electivas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository interface {
	Create(ctx context.Context, req *model.EnrollmentRequest) error
	Update(ctx context.Context, req *model.EnrollmentRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.EnrollmentRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.EnrollmentRequest, error)
	ExistsForStudentElective(ctx context.Context, studentID, electiveID uuid.UUID) (bool, error)
	PriorityTaken(ctx context.Context, studentID uuid.UUID, priority int) (bool, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.EnrollmentRequest, error)
	ListByElective(ctx context.Context, electiveID uuid.UUID, state model.RequestState, page, limit int) ([]model.EnrollmentRequest, int64, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Create(ctx context.Context, req *model.EnrollmentRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *enrollmentRepository) Update(ctx context.Context, req *model.EnrollmentRequest) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(req).Error
}

func (r *enrollmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.EnrollmentRequest{}).Error
}

func (r *enrollmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.EnrollmentRequest, error) {
	var req model.EnrollmentRequest
	if err := GetDB(ctx, r.db).Preload("Elective").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *enrollmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.EnrollmentRequest, error) {
	var req model.EnrollmentRequest
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *enrollmentRepository) ExistsForStudentElective(ctx context.Context, studentID, electiveID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.EnrollmentRequest{}).
		Where("student_id = ? AND elective_id = ?", studentID, electiveID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *enrollmentRepository) PriorityTaken(ctx context.Context, studentID uuid.UUID, priority int) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.EnrollmentRequest{}).
		Where("student_id = ? AND priority = ?", studentID, priority).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByStudent returns the student's requests newest first, with their electives loaded.
func (r *enrollmentRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.EnrollmentRequest, error) {
	var requests []model.EnrollmentRequest
	if err := GetDB(ctx, r.db).Preload("Elective").
		Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *enrollmentRepository) ListByElective(ctx context.Context, electiveID uuid.UUID, state model.RequestState, page, limit int) ([]model.EnrollmentRequest, int64, error) {
	var requests []model.EnrollmentRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.EnrollmentRequest{}).Where("elective_id = ?", electiveID)
	if state != "" {
		query = query.Where("state = ?", state)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Student").Preload("Student.Program").Where("elective_id = ?", electiveID)
	if state != "" {
		fetchQuery = fetchQuery.Where("state = ?", state)
	}
	if err := fetchQuery.
		Order("state ASC").Order("priority ASC").Order("submitted_at ASC").
		Offset(offset).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}
