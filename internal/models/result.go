package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// ResultStatusDraft indicates the result may still be recomputed and edited.
	ResultStatusDraft = "draft"
	// ResultStatusPublished indicates the result is frozen and its scale pinned.
	ResultStatusPublished = "published"
)

// Result is the term outcome for one (student, class, term). TotalScore and
// AverageScore are owned by the result aggregation service, Position and
// TotalStudents by the cohort ranker, Status and GradeScaleID by the
// publication workflow.
type Result struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	InstitutionID uint           `gorm:"not null;index" json:"institution_id"`
	StudentID     uint           `gorm:"not null;uniqueIndex:idx_results_key" json:"student_id"`
	ClassID       uint           `gorm:"not null;uniqueIndex:idx_results_key;index:idx_results_cohort" json:"class_id"`
	TermID        uint           `gorm:"not null;uniqueIndex:idx_results_key;index:idx_results_cohort" json:"term_id"`
	TotalScore    float64        `gorm:"not null;type:decimal(7,2)" json:"total_score"`
	AverageScore  float64        `gorm:"not null;type:decimal(5,2)" json:"average_score"`
	SubjectCount  int            `gorm:"not null" json:"subject_count"`
	Position      *int           `json:"position"`
	TotalStudents int            `gorm:"not null;default:0" json:"total_students"`
	Incomplete    bool           `gorm:"not null;default:true" json:"incomplete"`
	Status        string         `gorm:"size:32;not null;default:draft" json:"status"`
	GradeScaleID  *uint          `gorm:"index" json:"grade_scale_id"`
	Attendance    datatypes.JSON `json:"attendance"`
	Conduct       datatypes.JSON `json:"conduct"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IsPublished reports whether the result is frozen under a pinned scale.
func (r Result) IsPublished() bool {
	return r.Status == ResultStatusPublished
}

// CohortVersion tracks a monotonically increasing version per (class, term)
// cohort. Every full ranking pass bumps the version; a pass that observes a
// different version at commit time than at snapshot time has raced a
// concurrent edit and must be retried wholesale.
type CohortVersion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;uniqueIndex:idx_cohort_versions_key" json:"class_id"`
	TermID    uint      `gorm:"not null;uniqueIndex:idx_cohort_versions_key" json:"term_id"`
	Version   uint      `gorm:"not null;default:0" json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
