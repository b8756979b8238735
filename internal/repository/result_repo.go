package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mzizi-labs/darasa-api/internal/models"
)

// ErrCohortVersionConflict indicates a ranking pass raced a concurrent cohort
// edit: the version observed at snapshot time no longer matches at commit time.
var ErrCohortVersionConflict = errors.New("cohort version conflict")

// RankingUpdate carries the rank fields written back to one result row.
type RankingUpdate struct {
	ResultID      uint
	Position      *int
	TotalStudents int
}

// ResultRepository defines data operations for term results and cohort ranking.
type ResultRepository interface {
	Upsert(ctx context.Context, result *models.Result) error
	GetByStudentTerm(ctx context.Context, studentID, termID uint) (models.Result, error)
	ListByCohort(ctx context.Context, classID, termID uint) ([]models.Result, error)
	CohortVersion(ctx context.Context, classID, termID uint) (uint, error)
	BumpCohortVersion(ctx context.Context, classID, termID uint) error
	ReplaceCohortRanking(ctx context.Context, classID, termID, expectedVersion uint, updates []RankingUpdate) error
	PublishCohort(ctx context.Context, classID, termID, scaleID uint) (int64, error)
	UnpublishCohort(ctx context.Context, classID, termID uint) (int64, error)
	CountPublishedByScale(ctx context.Context, scaleID uint) (int64, error)
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository instantiates the repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

// Upsert writes the result keyed by (student, class, term), preserving the
// fields owned by the ranker and the publication workflow.
func (r *resultRepository) Upsert(ctx context.Context, result *models.Result) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Result
		err := tx.
			Where("student_id = ?", result.StudentID).
			Where("class_id = ?", result.ClassID).
			Where("term_id = ?", result.TermID).
			First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			result.ID = existing.ID
			result.CreatedAt = existing.CreatedAt
			result.Position = existing.Position
			result.TotalStudents = existing.TotalStudents
			result.Status = existing.Status
			result.GradeScaleID = existing.GradeScaleID
		}

		if err := tx.Save(result).Error; err != nil {
			return err
		}

		return bumpCohortVersion(tx, result.ClassID, result.TermID)
	})
}

func (r *resultRepository) GetByStudentTerm(ctx context.Context, studentID, termID uint) (models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("term_id = ?", termID).
		First(&result).Error; err != nil {
		return models.Result{}, err
	}

	return result, nil
}

func (r *resultRepository) ListByCohort(ctx context.Context, classID, termID uint) ([]models.Result, error) {
	var results []models.Result
	if err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Where("term_id = ?", termID).
		Order("student_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (r *resultRepository) CohortVersion(ctx context.Context, classID, termID uint) (uint, error) {
	var version models.CohortVersion
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Where("term_id = ?", termID).
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version.Version, nil
}

func (r *resultRepository) BumpCohortVersion(ctx context.Context, classID, termID uint) error {
	return bumpCohortVersion(r.db.WithContext(ctx), classID, termID)
}

func bumpCohortVersion(tx *gorm.DB, classID, termID uint) error {
	var version models.CohortVersion
	err := tx.Where("class_id = ?", classID).Where("term_id = ?", termID).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.CohortVersion{ClassID: classID, TermID: termID, Version: 1}).Error
	}
	if err != nil {
		return err
	}

	return tx.Model(&version).Update("version", gorm.Expr("version + 1")).Error
}

// ReplaceCohortRanking rewrites position and total_students for the whole
// cohort in one transaction. The write is rejected with
// ErrCohortVersionConflict when the cohort changed since the caller took its
// snapshot; the caller retries the full pass.
func (r *resultRepository) ReplaceCohortRanking(ctx context.Context, classID, termID, expectedVersion uint, updates []RankingUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := cohortVersionTx(tx, classID, termID)
		if err != nil {
			return err
		}
		if current != expectedVersion {
			return ErrCohortVersionConflict
		}

		for _, update := range updates {
			if err := tx.Model(&models.Result{}).
				Where("id = ?", update.ResultID).
				Select("position", "total_students").
				Updates(map[string]interface{}{
					"position":       update.Position,
					"total_students": update.TotalStudents,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func cohortVersionTx(tx *gorm.DB, classID, termID uint) (uint, error) {
	var version models.CohortVersion
	err := tx.Where("class_id = ?", classID).Where("term_id = ?", termID).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version.Version, nil
}

// PublishCohort pins the scale and flips the whole cohort to published.
func (r *resultRepository) PublishCohort(ctx context.Context, classID, termID, scaleID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Result{}).
		Where("class_id = ?", classID).
		Where("term_id = ?", termID).
		Updates(map[string]interface{}{
			"status":         models.ResultStatusPublished,
			"grade_scale_id": scaleID,
		})

	return result.RowsAffected, result.Error
}

// UnpublishCohort flips status back to draft. The pinned scale and every
// computed field are retained as an audit trail.
func (r *resultRepository) UnpublishCohort(ctx context.Context, classID, termID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Result{}).
		Where("class_id = ?", classID).
		Where("term_id = ?", termID).
		Update("status", models.ResultStatusDraft)

	return result.RowsAffected, result.Error
}

// CountPublishedByScale counts published results pinned to the given scale.
// A non-zero count freezes the scale against edits.
func (r *resultRepository) CountPublishedByScale(ctx context.Context, scaleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Result{}).
		Where("grade_scale_id = ?", scaleID).
		Where("status = ?", models.ResultStatusPublished).
		Count(&count).Error

	return count, err
}
