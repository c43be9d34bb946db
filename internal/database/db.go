package database

import (
	"fmt"
	"log"

	"electivas/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Program{},
		&model.User{},
		&model.AcademicPeriod{},
		&model.Elective{},
		&model.ProgramQuota{},
		&model.EnrollmentRequest{},
		&model.AuditLog{},
	}
}

// singleOpenPeriodIndex allows at most one active period in PLANIFICACION or INSCRIPCION.
const singleOpenPeriodIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_single_open_period
ON academic_periods ((true))
WHERE active AND state IN ('PLANIFICACION', 'INSCRIPCION')`

// Migrate creates or updates the schema. Partial indexes are only created on postgres.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(singleOpenPeriodIndex).Error; err != nil {
			return fmt.Errorf("failed to create period exclusivity index: %w", err)
		}
	}
	log.Println("Database schema is up to date.")
	return nil
}
