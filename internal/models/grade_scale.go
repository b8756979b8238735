package models

import "time"

// GradeScale is a named, versioned table mapping percentage bands to grades and points.
// A scale referenced by a published result must never be edited; publishing pins the
// scale ID onto each result so later edits to the active scale cannot rewrite history.
type GradeScale struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	InstitutionID uint         `gorm:"not null;index" json:"institution_id"`
	Name          string       `gorm:"size:255;not null" json:"name"`
	IsActive      bool         `gorm:"not null;default:false;index" json:"is_active"`
	Ranges        []GradeRange `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"ranges"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// GradeRange is one band of a scale. Bounds are inclusive percentages with two
// decimal places of precision; within a scale the ranges partition [0,100].
type GradeRange struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	GradeScaleID uint      `gorm:"not null;index" json:"grade_scale_id"`
	MinScore     float64   `gorm:"not null;type:decimal(5,2)" json:"min_score"`
	MaxScore     float64   `gorm:"not null;type:decimal(5,2)" json:"max_score"`
	Grade        string    `gorm:"size:16;not null" json:"grade"`
	Points       float64   `gorm:"not null;type:decimal(4,2)" json:"points"`
	Remark       string    `gorm:"size:255" json:"remark"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Contains reports whether the percentage falls inside the inclusive band.
func (r GradeRange) Contains(percentage float64) bool {
	return percentage >= r.MinScore && percentage <= r.MaxScore
}
