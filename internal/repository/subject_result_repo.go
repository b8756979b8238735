package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mzizi-labs/darasa-api/internal/models"
)

// SubjectResultRepository defines data operations for normalized subject results.
type SubjectResultRepository interface {
	Upsert(ctx context.Context, result *models.SubjectResult) error
	GetByKey(ctx context.Context, studentID, subjectID, termID uint) (models.SubjectResult, error)
	ListByStudentTerm(ctx context.Context, studentID, termID uint) ([]models.SubjectResult, error)
	ListByCohort(ctx context.Context, classID, termID uint) ([]models.SubjectResult, error)
}

type subjectResultRepository struct {
	db *gorm.DB
}

// NewSubjectResultRepository instantiates the repository.
func NewSubjectResultRepository(db *gorm.DB) SubjectResultRepository {
	return &subjectResultRepository{db: db}
}

func (r *subjectResultRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.SubjectResult{}).Preload("Subject")
}

// Upsert writes the result keyed by (student, subject, term). Re-running with
// unchanged input leaves the stored row identical.
func (r *subjectResultRepository) Upsert(ctx context.Context, result *models.SubjectResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SubjectResult
		err := tx.
			Where("student_id = ?", result.StudentID).
			Where("subject_id = ?", result.SubjectID).
			Where("term_id = ?", result.TermID).
			First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			result.ID = existing.ID
			result.CreatedAt = existing.CreatedAt
		}

		return tx.Omit("Subject").Save(result).Error
	})
}

func (r *subjectResultRepository) GetByKey(ctx context.Context, studentID, subjectID, termID uint) (models.SubjectResult, error) {
	var result models.SubjectResult
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("subject_id = ?", subjectID).
		Where("term_id = ?", termID).
		First(&result).Error; err != nil {
		return models.SubjectResult{}, err
	}

	return result, nil
}

func (r *subjectResultRepository) ListByStudentTerm(ctx context.Context, studentID, termID uint) ([]models.SubjectResult, error) {
	var results []models.SubjectResult
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("term_id = ?", termID).
		Order("subject_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (r *subjectResultRepository) ListByCohort(ctx context.Context, classID, termID uint) ([]models.SubjectResult, error) {
	var results []models.SubjectResult
	if err := r.baseQuery(ctx).
		Where("class_id = ?", classID).
		Where("term_id = ?", termID).
		Order("student_id ASC, subject_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}
