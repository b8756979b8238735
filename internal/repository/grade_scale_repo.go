package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mzizi-labs/darasa-api/internal/models"
)

// GradeScaleRepository defines data operations for grading scales.
type GradeScaleRepository interface {
	Create(ctx context.Context, scale *models.GradeScale) error
	Update(ctx context.Context, scale *models.GradeScale) error
	GetByID(ctx context.Context, id uint) (models.GradeScale, error)
	GetActive(ctx context.Context, institutionID uint) (models.GradeScale, error)
	List(ctx context.Context, institutionID uint) ([]models.GradeScale, error)
	Activate(ctx context.Context, institutionID, scaleID uint) error
}

type gradeScaleRepository struct {
	db *gorm.DB
}

// NewGradeScaleRepository instantiates the repository.
func NewGradeScaleRepository(db *gorm.DB) GradeScaleRepository {
	return &gradeScaleRepository{db: db}
}

func (r *gradeScaleRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.GradeScale{}).
		Preload("Ranges", func(db *gorm.DB) *gorm.DB {
			return db.Order("min_score ASC")
		})
}

func (r *gradeScaleRepository) Create(ctx context.Context, scale *models.GradeScale) error {
	return r.db.WithContext(ctx).Create(scale).Error
}

func (r *gradeScaleRepository) Update(ctx context.Context, scale *models.GradeScale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("grade_scale_id = ?", scale.ID).Delete(&models.GradeRange{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(scale).Error
	})
}

func (r *gradeScaleRepository) GetByID(ctx context.Context, id uint) (models.GradeScale, error) {
	var scale models.GradeScale
	if err := r.baseQuery(ctx).First(&scale, id).Error; err != nil {
		return models.GradeScale{}, err
	}

	return scale, nil
}

func (r *gradeScaleRepository) GetActive(ctx context.Context, institutionID uint) (models.GradeScale, error) {
	var scale models.GradeScale
	if err := r.baseQuery(ctx).
		Where("institution_id = ?", institutionID).
		Where("is_active = ?", true).
		First(&scale).Error; err != nil {
		return models.GradeScale{}, err
	}

	return scale, nil
}

func (r *gradeScaleRepository) List(ctx context.Context, institutionID uint) ([]models.GradeScale, error) {
	var scales []models.GradeScale
	if err := r.baseQuery(ctx).
		Where("institution_id = ?", institutionID).
		Order("created_at DESC").
		Find(&scales).Error; err != nil {
		return nil, err
	}

	return scales, nil
}

// Activate flips the active flag to the given scale. At most one scale per
// institution is active, so the previous one is deactivated in the same
// transaction.
func (r *gradeScaleRepository) Activate(ctx context.Context, institutionID, scaleID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GradeScale{}).
			Where("institution_id = ?", institutionID).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		return tx.Model(&models.GradeScale{}).
			Where("id = ?", scaleID).
			Where("institution_id = ?", institutionID).
			Update("is_active", true).Error
	})
}
