package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AcademicPeriod is a term during which electives are planned, requested and selected.
type AcademicPeriod struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(50);not null;index" json:"name"` // e.g. 2025-2
	StartDate datatypes.Date `gorm:"not null" json:"start_date"`
	EndDate   datatypes.Date `gorm:"not null" json:"end_date"`
	State     PeriodState    `gorm:"type:varchar(20);not null;index" json:"state"`
	Active    bool           `gorm:"not null;index" json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (AcademicPeriod) TableName() string {
	return "academic_periods"
}

func (p *AcademicPeriod) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Start returns the first calendar day of the period.
func (p AcademicPeriod) Start() time.Time {
	return DateOf(time.Time(p.StartDate))
}

// End returns the last calendar day of the period.
func (p AcademicPeriod) End() time.Time {
	return DateOf(time.Time(p.EndDate))
}
