package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mzizi-labs/darasa-api/internal/models"
)

// InstitutionRepository provides access to tenant configuration.
type InstitutionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Institution, error)
}

type institutionRepository struct {
	db *gorm.DB
}

// NewInstitutionRepository constructs an institution repository.
func NewInstitutionRepository(db *gorm.DB) InstitutionRepository {
	return &institutionRepository{db: db}
}

func (r *institutionRepository) GetByID(ctx context.Context, id uint) (models.Institution, error) {
	var institution models.Institution
	if err := r.db.WithContext(ctx).First(&institution, id).Error; err != nil {
		return models.Institution{}, err
	}

	return institution, nil
}
