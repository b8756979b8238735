package models

import (
	"time"

	"gorm.io/datatypes"
)

// Subject is a course offered to a class in a term. Component definitions and
// credit hours are consumed read-only by the aggregation engine.
type Subject struct {
	ID            uint                                    `gorm:"primaryKey" json:"id"`
	InstitutionID uint                                    `gorm:"not null;index" json:"institution_id"`
	ClassID       uint                                    `gorm:"not null;index:idx_subjects_cohort" json:"class_id"`
	TermID        uint                                    `gorm:"not null;index:idx_subjects_cohort" json:"term_id"`
	Name          string                                  `gorm:"size:255;not null" json:"name"`
	Code          string                                  `gorm:"size:32" json:"code"`
	CreditHours   float64                                 `gorm:"not null;default:1" json:"credit_hours"`
	Required      bool                                    `gorm:"not null;default:true" json:"required"`
	Components    datatypes.JSONType[[]ComponentConfig]   `json:"components"`
	CreatedAt     time.Time                               `json:"created_at"`
	UpdatedAt     time.Time                               `json:"updated_at"`
}

// ComponentConfig declares one assessment component of a subject, e.g. a
// continuous-assessment piece or the end-of-term exam, with its own maximum.
type ComponentConfig struct {
	Name     string  `json:"name"`
	MaxScore float64 `json:"max_score"`
}

// RequiredComponents returns the declared component set. A subject with no
// declared components is assessment-based: a single (obtained, total) pair.
func (s Subject) RequiredComponents() []ComponentConfig {
	return s.Components.Data()
}
