package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Elective is a course proposed by a professor and reviewed by the department head.
type Elective struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description     string          `gorm:"type:text" json:"description"`
	Credits         decimal.Decimal `gorm:"type:decimal(4,1);not null" json:"credits"`
	TotalSeats      int             `gorm:"type:int;not null" json:"total_seats"`
	ProfessorName   string          `gorm:"type:varchar(255);not null" json:"professor_name"`
	ProposedBy      *uuid.UUID      `gorm:"type:uuid;index" json:"proposed_by"`
	State           ElectiveState   `gorm:"type:varchar(20);not null;index" json:"state"`
	ReviewedBy      *uuid.UUID      `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt      *time.Time      `json:"reviewed_at"`
	RejectionReason string          `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Elective) TableName() string {
	return "electives"
}

func (e *Elective) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
