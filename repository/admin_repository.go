package repository

import (
	"context"
	"errors"

	"otakuwave/model"

	"gorm.io/gorm"
)

// AdminRepository is the data access for admin accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	GetByUsername(ctx context.Context, username string) (*model.Admin, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// gormAdminRepository is the GORM implementation.
type gormAdminRepository struct {
	db *gorm.DB
}

// NewGormAdminRepository creates a GORM-backed AdminRepository.
func NewGormAdminRepository(db *gorm.DB) AdminRepository {
	return &gormAdminRepository{db: db}
}

func (r *gormAdminRepository) Create(ctx context.Context, admin *model.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

// GetByUsername returns nil, nil when the account does not exist.
func (r *gormAdminRepository) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

func (r *gormAdminRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&model.Admin{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}
