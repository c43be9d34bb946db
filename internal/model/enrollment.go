package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unique index names, referenced when translating constraint violations.
const (
	IndexStudentElective = "idx_enrollment_student_elective"
	IndexStudentPriority = "idx_enrollment_student_priority"
)

// EnrollmentRequest is a student's ranked request for a seat in an elective.
type EnrollmentRequest struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_elective;uniqueIndex:idx_enrollment_student_priority" json:"student_id"`
	Student         *User        `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	ElectiveID      uuid.UUID    `gorm:"type:uuid;not null;index;uniqueIndex:idx_enrollment_student_elective" json:"elective_id"`
	Elective        *Elective    `gorm:"foreignKey:ElectiveID" json:"elective,omitempty"`
	Priority        int          `gorm:"type:int;not null;uniqueIndex:idx_enrollment_student_priority" json:"priority"`
	State           RequestState `gorm:"type:varchar(20);not null;index" json:"state"`
	SubmittedAt     time.Time    `gorm:"not null;index" json:"submitted_at"`
	ReviewedBy      *uuid.UUID   `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt      *time.Time   `json:"reviewed_at"`
	RejectionReason string       `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (EnrollmentRequest) TableName() string {
	return "enrollment_requests"
}

func (r *EnrollmentRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
