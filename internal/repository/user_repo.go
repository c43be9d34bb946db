package repository

import (
	"context"

	"electivas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository reads the user/program directory. Directory maintenance lives elsewhere.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Program").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type ProgramRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Program, error)
}

type programRepository struct {
	db *gorm.DB
}

func NewProgramRepository(db *gorm.DB) ProgramRepository {
	return &programRepository{db: db}
}

func (r *programRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Program, error) {
	var program model.Program
	if err := GetDB(ctx, r.db).First(&program, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &program, nil
}
