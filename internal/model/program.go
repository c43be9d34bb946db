package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Program is an academic program (carrera) a student belongs to.
type Program struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Program) TableName() string {
	return "programs"
}

func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProgramQuota reserves seats of an elective for the students of one program.
type ProgramQuota struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ElectiveID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_quota_elective_program" json:"elective_id"`
	Elective      *Elective `gorm:"foreignKey:ElectiveID;constraint:OnDelete:CASCADE;" json:"-"`
	ProgramID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_quota_elective_program" json:"program_id"`
	Program       *Program  `gorm:"foreignKey:ProgramID" json:"program,omitempty"`
	ReservedSeats int       `gorm:"type:int;not null;check:reserved_seats >= 0" json:"reserved_seats"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ProgramQuota) TableName() string {
	return "program_quotas"
}

func (q *ProgramQuota) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
