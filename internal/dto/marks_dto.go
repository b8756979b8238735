package dto

import (
	"time"

	"github.com/mzizi-labs/darasa-api/internal/models"
)

// ComponentMarkInput carries one raw component mark, e.g. a CA piece or an
// exam. The maximum comes from the subject's component configuration, never
// from the caller.
type ComponentMarkInput struct {
	Name  string  `json:"name" validate:"required,max=64"`
	Score float64 `json:"score"`
}

// SubjectMarksRequest records marks for one student in one subject. Subjects
// with declared components use Components; assessment-based subjects supply a
// single obtained/total pair instead.
type SubjectMarksRequest struct {
	StudentID     uint                 `json:"student_id" validate:"required,gt=0"`
	SubjectID     uint                 `json:"subject_id" validate:"required,gt=0"`
	ClassID       uint                 `json:"class_id" validate:"required,gt=0"`
	TermID        uint                 `json:"term_id" validate:"required,gt=0"`
	Components    []ComponentMarkInput `json:"components" validate:"omitempty,dive"`
	MarksObtained *float64             `json:"marks_obtained" validate:"omitempty"`
	TotalMarks    *float64             `json:"total_marks" validate:"omitempty,gt=0"`
}

// BulkMarksRequest ingests a batch of subject marks in one call. Records are
// processed independently: a bad record is reported and skipped, the rest of
// the batch continues.
type BulkMarksRequest struct {
	InstitutionID uint                  `json:"institution_id" validate:"required,gt=0"`
	Entries       []SubjectMarksRequest `json:"entries" validate:"required,min=1,dive"`
}

// BulkMarkOutcome reports the fate of one batch entry.
type BulkMarkOutcome struct {
	Index     int                    `json:"index"`
	StudentID uint                   `json:"student_id"`
	SubjectID uint                   `json:"subject_id"`
	Error     string                 `json:"error,omitempty"`
	Result    *SubjectResultResponse `json:"result,omitempty"`
}

// BulkMarksResponse summarizes a processed batch.
type BulkMarksResponse struct {
	Accepted int               `json:"accepted"`
	Rejected int               `json:"rejected"`
	Outcomes []BulkMarkOutcome `json:"outcomes"`
}

// SubjectResultResponse serializes a normalized subject result.
type SubjectResultResponse struct {
	ID         uint                   `json:"id"`
	StudentID  uint                   `json:"student_id"`
	SubjectID  uint                   `json:"subject_id"`
	ClassID    uint                   `json:"class_id"`
	TermID     uint                   `json:"term_id"`
	Marks      []models.ComponentMark `json:"marks"`
	TotalScore float64                `json:"total_score"`
	Grade      string                 `json:"grade"`
	Points     float64                `json:"points"`
	Incomplete bool                   `json:"incomplete"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// NewSubjectResultResponse maps a subject result model into its API form.
func NewSubjectResultResponse(result models.SubjectResult) SubjectResultResponse {
	return SubjectResultResponse{
		ID:         result.ID,
		StudentID:  result.StudentID,
		SubjectID:  result.SubjectID,
		ClassID:    result.ClassID,
		TermID:     result.TermID,
		Marks:      result.Marks.Data(),
		TotalScore: result.TotalScore,
		Grade:      result.Grade,
		Points:     result.Points,
		Incomplete: result.Incomplete,
		UpdatedAt:  result.UpdatedAt,
	}
}
