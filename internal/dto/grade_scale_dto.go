package dto

import (
	"time"

	"github.com/mzizi-labs/darasa-api/internal/models"
)

// GradeRangeInput describes one band when creating or editing a scale.
type GradeRangeInput struct {
	MinScore float64 `json:"min_score" validate:"gte=0,lte=100"`
	MaxScore float64 `json:"max_score" validate:"gte=0,lte=100"`
	Grade    string  `json:"grade" validate:"required,max=16"`
	Points   float64 `json:"points" validate:"gte=0"`
	Remark   string  `json:"remark" validate:"max=255"`
}

// GradeScaleCreateRequest is the payload for defining a new grading scale.
type GradeScaleCreateRequest struct {
	InstitutionID uint              `json:"institution_id" validate:"required,gt=0"`
	Name          string            `json:"name" validate:"required,max=255"`
	Ranges        []GradeRangeInput `json:"ranges" validate:"required,min=1,dive"`
}

// GradeScaleUpdateRequest replaces the band set of an existing scale.
type GradeScaleUpdateRequest struct {
	Name   string            `json:"name" validate:"required,max=255"`
	Ranges []GradeRangeInput `json:"ranges" validate:"required,min=1,dive"`
}

// GradeRangeResponse serializes one band of a scale.
type GradeRangeResponse struct {
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
	Grade    string  `json:"grade"`
	Points   float64 `json:"points"`
	Remark   string  `json:"remark"`
}

// GradeScaleResponse serializes a scale with its ordered bands.
type GradeScaleResponse struct {
	ID            uint                 `json:"id"`
	InstitutionID uint                 `json:"institution_id"`
	Name          string               `json:"name"`
	IsActive      bool                 `json:"is_active"`
	Ranges        []GradeRangeResponse `json:"ranges"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewGradeScaleResponse maps a scale model into its API representation.
func NewGradeScaleResponse(scale models.GradeScale) GradeScaleResponse {
	ranges := make([]GradeRangeResponse, 0, len(scale.Ranges))
	for _, r := range scale.Ranges {
		ranges = append(ranges, GradeRangeResponse{
			MinScore: r.MinScore,
			MaxScore: r.MaxScore,
			Grade:    r.Grade,
			Points:   r.Points,
			Remark:   r.Remark,
		})
	}

	return GradeScaleResponse{
		ID:            scale.ID,
		InstitutionID: scale.InstitutionID,
		Name:          scale.Name,
		IsActive:      scale.IsActive,
		Ranges:        ranges,
		CreatedAt:     scale.CreatedAt,
		UpdatedAt:     scale.UpdatedAt,
	}
}
