package models

import (
	"time"

	"gorm.io/datatypes"
)

// ComponentMark is one raw mark captured for a subject component.
type ComponentMark struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
}

// SubjectResult holds the normalized outcome for one (student, subject, term).
// It is created and recomputed exclusively by the subject aggregation service.
type SubjectResult struct {
	ID            uint                                  `gorm:"primaryKey" json:"id"`
	InstitutionID uint                                  `gorm:"not null;index" json:"institution_id"`
	StudentID     uint                                  `gorm:"not null;uniqueIndex:idx_subject_results_key" json:"student_id"`
	SubjectID     uint                                  `gorm:"not null;uniqueIndex:idx_subject_results_key" json:"subject_id"`
	TermID        uint                                  `gorm:"not null;uniqueIndex:idx_subject_results_key" json:"term_id"`
	ClassID       uint                                  `gorm:"not null;index" json:"class_id"`
	Marks         datatypes.JSONType[[]ComponentMark]   `json:"marks"`
	TotalScore    float64                               `gorm:"not null;type:decimal(5,2)" json:"total_score"`
	Grade         string                                `gorm:"size:16" json:"grade"`
	Points        float64                               `gorm:"type:decimal(4,2)" json:"points"`
	Incomplete    bool                                  `gorm:"not null;default:true" json:"incomplete"`
	CreatedAt     time.Time                             `json:"created_at"`
	UpdatedAt     time.Time                             `json:"updated_at"`
	Subject       Subject                               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"subject"`
}
