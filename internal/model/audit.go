package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreatePeriod      = "CREATE_PERIOD"
	ActionChangePeriodState = "CHANGE_PERIOD_STATE"
	ActionArchivePeriod     = "ARCHIVE_PERIOD"
	ActionPurgePeriod       = "PURGE_PERIOD"

	ActionProposeElective  = "PROPOSE_ELECTIVE"
	ActionApproveElective  = "APPROVE_ELECTIVE"
	ActionRejectElective   = "REJECT_ELECTIVE"
	ActionDistributeQuotas = "DISTRIBUTE_QUOTAS"

	// Enrollment workflow actions
	ActionSubmitEnrollment   = "SUBMIT_ENROLLMENT"
	ActionWithdrawEnrollment = "WITHDRAW_ENROLLMENT"
	ActionApproveEnrollment  = "APPROVE_ENROLLMENT"
	ActionRejectEnrollment   = "REJECT_ENROLLMENT"
	ActionPromoteWaitlist    = "PROMOTE_WAITLIST"
)

// AuditLog tracks Who, What, and When for every state-changing operation
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // Nil for CLI actions
	User       *User          `gorm:"foreignKey:UserID" json:"user"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
