package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mzizi-labs/darasa-api/internal/dto"
	"github.com/mzizi-labs/darasa-api/internal/models"
	"github.com/mzizi-labs/darasa-api/internal/repository"
)

// ErrScaleNotFound indicates the requested scale does not exist.
var ErrScaleNotFound = errors.New("grade scale not found")

// ErrNoActiveScale indicates the institution has no active grading scale.
var ErrNoActiveScale = errors.New("no active grade scale for institution")

// ErrScalePinned indicates the scale is referenced by published results and
// may no longer be edited.
var ErrScalePinned = errors.New("grade scale is pinned by published results")

// ErrMissingRange indicates no band of the scale covers the percentage. This
// only happens for a malformed scale that bypassed validation.
var ErrMissingRange = errors.New("no grade range covers score")

// ErrOverlappingRange indicates two bands of a scale overlap.
var ErrOverlappingRange = errors.New("grade ranges overlap")

// ErrCoverageGap indicates the bands of a scale leave part of [0,100] uncovered.
var ErrCoverageGap = errors.New("grade ranges leave a coverage gap")

// ErrNonMonotonicPoints indicates points decrease as score bands increase,
// which would break the monotonicity contract of grade resolution.
var ErrNonMonotonicPoints = errors.New("grade points not monotonic across ranges")

const scaleMaxCents = 100 * 100

// ValidateScaleRanges checks that the bands partition [0,100] exactly: sorted
// by min score, no overlap, no gap, and points never decrease as bands rise.
// Bounds are inclusive two-decimal percentages, so adjacency means the next
// min is exactly one hundredth above the previous max. Runs whenever a scale
// is created, edited or activated, never at resolution time.
func ValidateScaleRanges(ranges []models.GradeRange) error {
	if len(ranges) == 0 {
		return fmt.Errorf("%w: scale has no ranges", ErrCoverageGap)
	}

	ordered := make([]models.GradeRange, len(ranges))
	copy(ordered, ranges)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].MinScore < ordered[j].MinScore
	})

	for _, r := range ordered {
		if toCents(r.MinScore) > toCents(r.MaxScore) {
			return fmt.Errorf("%w: range %q has min %.2f above max %.2f", ErrCoverageGap, r.Grade, r.MinScore, r.MaxScore)
		}
	}

	if toCents(ordered[0].MinScore) != 0 {
		return fmt.Errorf("%w: lowest range %q starts at %.2f, not 0.00", ErrCoverageGap, ordered[0].Grade, ordered[0].MinScore)
	}

	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		prevMax := toCents(prev.MaxScore)
		curMin := toCents(cur.MinScore)

		switch {
		case curMin <= prevMax:
			return fmt.Errorf("%w: range %q [%.2f,%.2f] overlaps %q [%.2f,%.2f]",
				ErrOverlappingRange, cur.Grade, cur.MinScore, cur.MaxScore, prev.Grade, prev.MinScore, prev.MaxScore)
		case curMin != prevMax+1:
			return fmt.Errorf("%w: gap between %q max %.2f and %q min %.2f",
				ErrCoverageGap, prev.Grade, prev.MaxScore, cur.Grade, cur.MinScore)
		}

		if cur.Points < prev.Points {
			return fmt.Errorf("%w: range %q has %.2f points below %q with %.2f",
				ErrNonMonotonicPoints, cur.Grade, cur.Points, prev.Grade, prev.Points)
		}
	}

	if toCents(ordered[len(ordered)-1].MaxScore) != scaleMaxCents {
		return fmt.Errorf("%w: highest range %q ends at %.2f, not 100.00",
			ErrCoverageGap, ordered[len(ordered)-1].Grade, ordered[len(ordered)-1].MaxScore)
	}

	return nil
}

// ResolveGrade maps a percentage to the band covering it. The percentage is
// clamped to [0,100] before lookup. ErrMissingRange signals a malformed scale.
func ResolveGrade(scale models.GradeScale, percentage float64) (models.GradeRange, error) {
	cents := toCents(clampPercentage(percentage))
	for _, r := range scale.Ranges {
		if cents >= toCents(r.MinScore) && cents <= toCents(r.MaxScore) {
			return r, nil
		}
	}

	return models.GradeRange{}, fmt.Errorf("%w: scale %d, score %.2f", ErrMissingRange, scale.ID, percentage)
}

// GradeScaleService manages the lifecycle of institution grading scales.
type GradeScaleService interface {
	Create(ctx context.Context, payload dto.GradeScaleCreateRequest) (dto.GradeScaleResponse, error)
	Update(ctx context.Context, id uint, payload dto.GradeScaleUpdateRequest) (dto.GradeScaleResponse, error)
	Get(ctx context.Context, id uint) (dto.GradeScaleResponse, error)
	List(ctx context.Context, institutionID uint) ([]dto.GradeScaleResponse, error)
	Activate(ctx context.Context, institutionID, scaleID uint) (dto.GradeScaleResponse, error)
	ActiveScale(ctx context.Context, institutionID uint) (models.GradeScale, error)
	ScaleByID(ctx context.Context, id uint) (models.GradeScale, error)
}

type gradeScaleService struct {
	scales    repository.GradeScaleRepository
	results   repository.ResultRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradeScaleService constructs the grade scale service.
func NewGradeScaleService(scales repository.GradeScaleRepository, results repository.ResultRepository, validate *validator.Validate, logger zerolog.Logger) GradeScaleService {
	return &gradeScaleService{
		scales:    scales,
		results:   results,
		validator: validate,
		logger:    logger.With().Str("component", "grade_scale_service").Logger(),
	}
}

func rangesFromInput(scaleID uint, inputs []dto.GradeRangeInput) []models.GradeRange {
	ranges := make([]models.GradeRange, 0, len(inputs))
	for _, input := range inputs {
		ranges = append(ranges, models.GradeRange{
			GradeScaleID: scaleID,
			MinScore:     input.MinScore,
			MaxScore:     input.MaxScore,
			Grade:        input.Grade,
			Points:       input.Points,
			Remark:       input.Remark,
		})
	}

	return ranges
}

func (s *gradeScaleService) Create(ctx context.Context, payload dto.GradeScaleCreateRequest) (dto.GradeScaleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	scale := models.GradeScale{
		InstitutionID: payload.InstitutionID,
		Name:          payload.Name,
		Ranges:        rangesFromInput(0, payload.Ranges),
	}

	if err := ValidateScaleRanges(scale.Ranges); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	if err := s.scales.Create(ctx, &scale); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	s.logger.Info().Uint("scale_id", scale.ID).Uint("institution_id", scale.InstitutionID).Msg("grade scale created")

	return dto.NewGradeScaleResponse(scale), nil
}

func (s *gradeScaleService) Update(ctx context.Context, id uint, payload dto.GradeScaleUpdateRequest) (dto.GradeScaleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	scale, err := s.scales.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeScaleResponse{}, ErrScaleNotFound
		}
		return dto.GradeScaleResponse{}, err
	}

	pinned, err := s.results.CountPublishedByScale(ctx, scale.ID)
	if err != nil {
		return dto.GradeScaleResponse{}, err
	}
	if pinned > 0 {
		return dto.GradeScaleResponse{}, ErrScalePinned
	}

	scale.Name = payload.Name
	scale.Ranges = rangesFromInput(scale.ID, payload.Ranges)

	if err := ValidateScaleRanges(scale.Ranges); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	if err := s.scales.Update(ctx, &scale); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	updated, err := s.scales.GetByID(ctx, scale.ID)
	if err != nil {
		return dto.GradeScaleResponse{}, err
	}

	return dto.NewGradeScaleResponse(updated), nil
}

func (s *gradeScaleService) Get(ctx context.Context, id uint) (dto.GradeScaleResponse, error) {
	scale, err := s.scales.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeScaleResponse{}, ErrScaleNotFound
		}
		return dto.GradeScaleResponse{}, err
	}

	return dto.NewGradeScaleResponse(scale), nil
}

func (s *gradeScaleService) List(ctx context.Context, institutionID uint) ([]dto.GradeScaleResponse, error) {
	scales, err := s.scales.List(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.GradeScaleResponse, 0, len(scales))
	for _, scale := range scales {
		responses = append(responses, dto.NewGradeScaleResponse(scale))
	}

	return responses, nil
}

// Activate makes the scale the institution's single active one. A malformed
// scale must never become active, so the partition invariant is re-checked.
func (s *gradeScaleService) Activate(ctx context.Context, institutionID, scaleID uint) (dto.GradeScaleResponse, error) {
	scale, err := s.scales.GetByID(ctx, scaleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeScaleResponse{}, ErrScaleNotFound
		}
		return dto.GradeScaleResponse{}, err
	}
	if scale.InstitutionID != institutionID {
		return dto.GradeScaleResponse{}, ErrScaleNotFound
	}

	if err := ValidateScaleRanges(scale.Ranges); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	if err := s.scales.Activate(ctx, institutionID, scaleID); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	activated, err := s.scales.GetByID(ctx, scaleID)
	if err != nil {
		return dto.GradeScaleResponse{}, err
	}

	s.logger.Info().Uint("scale_id", scaleID).Uint("institution_id", institutionID).Msg("grade scale activated")

	return dto.NewGradeScaleResponse(activated), nil
}

// ScaleByID loads a scale with its ordered ranges, typically to resolve
// grades of a published result through its pinned scale.
func (s *gradeScaleService) ScaleByID(ctx context.Context, id uint) (models.GradeScale, error) {
	scale, err := s.scales.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradeScale{}, ErrScaleNotFound
		}
		return models.GradeScale{}, err
	}

	return scale, nil
}

func (s *gradeScaleService) ActiveScale(ctx context.Context, institutionID uint) (models.GradeScale, error) {
	scale, err := s.scales.GetActive(ctx, institutionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradeScale{}, ErrNoActiveScale
		}
		return models.GradeScale{}, err
	}

	return scale, nil
}
