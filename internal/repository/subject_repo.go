package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mzizi-labs/darasa-api/internal/models"
)

// SubjectRepository reads subject configuration: components, credit hours and
// the required-subject set of a class/term. The engine never writes subjects.
type SubjectRepository interface {
	GetByID(ctx context.Context, id uint) (models.Subject, error)
	ListByClassTerm(ctx context.Context, classID, termID uint) ([]models.Subject, error)
}

type subjectRepository struct {
	db *gorm.DB
}

// NewSubjectRepository instantiates the repository.
func NewSubjectRepository(db *gorm.DB) SubjectRepository {
	return &subjectRepository{db: db}
}

func (r *subjectRepository) GetByID(ctx context.Context, id uint) (models.Subject, error) {
	var subject models.Subject
	if err := r.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return models.Subject{}, err
	}

	return subject, nil
}

func (r *subjectRepository) ListByClassTerm(ctx context.Context, classID, termID uint) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Where("term_id = ?", termID).
		Order("name ASC").
		Find(&subjects).Error; err != nil {
		return nil, err
	}

	return subjects, nil
}
