package dto

import (
	"time"

	"github.com/mzizi-labs/darasa-api/internal/models"
)

// ResultResponse serializes one student's term result.
type ResultResponse struct {
	ID            uint      `json:"id"`
	StudentID     uint      `json:"student_id"`
	ClassID       uint      `json:"class_id"`
	TermID        uint      `json:"term_id"`
	TotalScore    float64   `json:"total_score"`
	AverageScore  float64   `json:"average_score"`
	SubjectCount  int       `json:"subject_count"`
	Position      *int      `json:"position"`
	TotalStudents int       `json:"total_students"`
	Incomplete    bool      `json:"incomplete"`
	Status        string    `json:"status"`
	GradeScaleID  *uint     `json:"grade_scale_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewResultResponse maps a result model into its API form.
func NewResultResponse(result models.Result) ResultResponse {
	return ResultResponse{
		ID:            result.ID,
		StudentID:     result.StudentID,
		ClassID:       result.ClassID,
		TermID:        result.TermID,
		TotalScore:    result.TotalScore,
		AverageScore:  result.AverageScore,
		SubjectCount:  result.SubjectCount,
		Position:      result.Position,
		TotalStudents: result.TotalStudents,
		Incomplete:    result.Incomplete,
		Status:        result.Status,
		GradeScaleID:  result.GradeScaleID,
		UpdatedAt:     result.UpdatedAt,
	}
}

// RecomputeResponse summarizes a cohort recompute-and-rank pass.
type RecomputeResponse struct {
	ClassID  uint `json:"class_id"`
	TermID   uint `json:"term_id"`
	Ranked   int  `json:"ranked"`
	Excluded int  `json:"excluded"`
}

// PublishResponse summarizes a publication transition.
type PublishResponse struct {
	ClassID      uint   `json:"class_id"`
	TermID       uint   `json:"term_id"`
	Published    int    `json:"published"`
	GradeScaleID uint   `json:"grade_scale_id"`
	Status       string `json:"status"`
}

// BroadsheetSubjectLine is one subject cell of a broadsheet row.
type BroadsheetSubjectLine struct {
	SubjectID  uint    `json:"subject_id"`
	Subject    string  `json:"subject"`
	TotalScore float64 `json:"total_score"`
	Grade      string  `json:"grade"`
	Points     float64 `json:"points"`
	Incomplete bool    `json:"incomplete"`
}

// BroadsheetEntry is one student row of the ranked cohort view.
type BroadsheetEntry struct {
	StudentID    uint                    `json:"student_id"`
	StudentName  string                  `json:"student_name"`
	TotalScore   float64                 `json:"total_score"`
	AverageScore float64                 `json:"average_score"`
	Position     *int                    `json:"position"`
	Incomplete   bool                    `json:"incomplete"`
	Status       string                  `json:"status"`
	Subjects     []BroadsheetSubjectLine `json:"subjects"`
}

// BroadsheetResponse is the ranked class/term view served to staff.
type BroadsheetResponse struct {
	ClassID       uint              `json:"class_id"`
	TermID        uint              `json:"term_id"`
	TotalStudents int               `json:"total_students"`
	Excluded      int               `json:"excluded"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Entries       []BroadsheetEntry `json:"entries"`
}

// StudentResultResponse is the per-student view, with subject grades resolved
// through the pinned scale when the result is published.
type StudentResultResponse struct {
	Result   ResultResponse          `json:"result"`
	Subjects []SubjectResultResponse `json:"subjects"`
}
