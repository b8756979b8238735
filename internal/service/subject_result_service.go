package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mzizi-labs/darasa-api/internal/dto"
	"github.com/mzizi-labs/darasa-api/internal/models"
	"github.com/mzizi-labs/darasa-api/internal/repository"
)

// ErrSubjectNotFound indicates the subject does not exist for the class/term.
var ErrSubjectNotFound = errors.New("subject not found for class and term")

// ErrInvalidScore indicates a component mark is negative or exceeds its
// declared maximum. Bad marks are rejected at input time, never clamped.
var ErrInvalidScore = errors.New("component score out of range")

// ErrUnknownComponent indicates a mark names a component the subject does not declare.
var ErrUnknownComponent = errors.New("unknown subject component")

// ErrMissingMarks indicates a record carries neither component marks nor an
// obtained/total pair.
var ErrMissingMarks = errors.New("no marks supplied")

// SubjectResultService normalizes raw component marks into subject results.
type SubjectResultService interface {
	RecordMarks(ctx context.Context, institutionID uint, payload dto.SubjectMarksRequest) (dto.SubjectResultResponse, error)
	RecordBulk(ctx context.Context, payload dto.BulkMarksRequest) (dto.BulkMarksResponse, error)
}

type subjectResultService struct {
	subjectResults repository.SubjectResultRepository
	subjects       repository.SubjectRepository
	scales         GradeScaleService
	results        ResultService
	validator      *validator.Validate
	logger         zerolog.Logger
}

// NewSubjectResultService constructs the subject aggregation service.
func NewSubjectResultService(subjectResults repository.SubjectResultRepository, subjects repository.SubjectRepository, scales GradeScaleService, results ResultService, validate *validator.Validate, logger zerolog.Logger) SubjectResultService {
	return &subjectResultService{
		subjectResults: subjectResults,
		subjects:       subjects,
		scales:         scales,
		results:        results,
		validator:      validate,
		logger:         logger.With().Str("component", "subject_result_service").Logger(),
	}
}

// AggregateComponents turns raw component marks into a normalized percentage:
// sum of scores over sum of maxima, scaled to 100 and rounded to two decimal
// places half-up.
func AggregateComponents(marks []models.ComponentMark) float64 {
	var sum, max float64
	for _, mark := range marks {
		sum += mark.Score
		max += mark.MaxScore
	}
	if max <= 0 {
		return 0
	}

	return roundScore(sum / max * 100)
}

func (s *subjectResultService) RecordMarks(ctx context.Context, institutionID uint, payload dto.SubjectMarksRequest) (dto.SubjectResultResponse, error) {
	tracer := otel.Tracer("github.com/mzizi-labs/darasa-api/internal/service/subject_result")
	ctx, span := tracer.Start(ctx, "marks.record")
	span.SetAttributes(
		attribute.Int64("marks.student_id", int64(payload.StudentID)),
		attribute.Int64("marks.subject_id", int64(payload.SubjectID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubjectResultResponse{}, err
	}

	subject, err := s.subjects.GetByID(ctx, payload.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubjectResultResponse{}, ErrSubjectNotFound
		}
		return dto.SubjectResultResponse{}, err
	}
	if subject.ClassID != payload.ClassID || subject.TermID != payload.TermID {
		return dto.SubjectResultResponse{}, ErrSubjectNotFound
	}

	marks, complete, err := s.mergeMarks(ctx, subject, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marks_rejected")
		return dto.SubjectResultResponse{}, err
	}

	total := AggregateComponents(marks)

	// Grade resolution at recording time uses the active scale. The scale
	// reference is only pinned later, at publication.
	scale, err := s.scales.ActiveScale(ctx, institutionID)
	if err != nil {
		return dto.SubjectResultResponse{}, err
	}
	band, err := ResolveGrade(scale, total)
	if err != nil {
		return dto.SubjectResultResponse{}, err
	}

	result := models.SubjectResult{
		InstitutionID: institutionID,
		StudentID:     payload.StudentID,
		SubjectID:     payload.SubjectID,
		TermID:        payload.TermID,
		ClassID:       payload.ClassID,
		Marks:         datatypes.NewJSONType(marks),
		TotalScore:    total,
		Grade:         band.Grade,
		Points:        band.Points,
		Incomplete:    !complete,
	}

	if err := s.subjectResults.Upsert(ctx, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert_failed")
		return dto.SubjectResultResponse{}, err
	}

	if err := s.results.RecomputeStudent(ctx, institutionID, payload.StudentID, payload.ClassID, payload.TermID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_recompute_failed")
		return dto.SubjectResultResponse{}, err
	}

	span.SetAttributes(
		attribute.Float64("marks.total_score", total),
		attribute.String("marks.grade", band.Grade),
		attribute.Bool("marks.incomplete", !complete),
	)

	stored, err := s.subjectResults.GetByKey(ctx, payload.StudentID, payload.SubjectID, payload.TermID)
	if err != nil {
		return dto.SubjectResultResponse{}, err
	}

	return dto.NewSubjectResultResponse(stored), nil
}

// RecordBulk processes a batch of mark records independently: a rejected
// record is reported in its outcome and does not abort the rest.
func (s *subjectResultService) RecordBulk(ctx context.Context, payload dto.BulkMarksRequest) (dto.BulkMarksResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BulkMarksResponse{}, err
	}

	response := dto.BulkMarksResponse{Outcomes: make([]dto.BulkMarkOutcome, 0, len(payload.Entries))}
	for i, entry := range payload.Entries {
		outcome := dto.BulkMarkOutcome{Index: i, StudentID: entry.StudentID, SubjectID: entry.SubjectID}

		result, err := s.RecordMarks(ctx, payload.InstitutionID, entry)
		if err != nil {
			outcome.Error = err.Error()
			response.Rejected++
			s.logger.Warn().Err(err).
				Int("index", i).
				Uint("student_id", entry.StudentID).
				Uint("subject_id", entry.SubjectID).
				Msg("mark record rejected")
		} else {
			outcome.Result = &result
			response.Accepted++
		}

		response.Outcomes = append(response.Outcomes, outcome)
	}

	return response, nil
}

// mergeMarks validates incoming marks against the subject's component
// configuration and merges them over any previously stored marks so partial
// entry (CA now, exam later) accumulates into one record.
func (s *subjectResultService) mergeMarks(ctx context.Context, subject models.Subject, payload dto.SubjectMarksRequest) ([]models.ComponentMark, bool, error) {
	configs := subject.RequiredComponents()

	if len(configs) == 0 {
		// Assessment-based subject: a single obtained/total pair.
		if payload.MarksObtained == nil || payload.TotalMarks == nil {
			return nil, false, ErrMissingMarks
		}
		obtained, total := *payload.MarksObtained, *payload.TotalMarks
		if obtained < 0 || obtained > total {
			return nil, false, fmt.Errorf("%w: %.2f of %.2f", ErrInvalidScore, obtained, total)
		}

		return []models.ComponentMark{{Name: "assessment", Score: obtained, MaxScore: total}}, true, nil
	}

	if len(payload.Components) == 0 {
		return nil, false, ErrMissingMarks
	}

	byName := make(map[string]models.ComponentMark)
	if existing, err := s.subjectResults.GetByKey(ctx, payload.StudentID, payload.SubjectID, payload.TermID); err == nil {
		for _, mark := range existing.Marks.Data() {
			byName[mark.Name] = mark
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	for _, input := range payload.Components {
		config, ok := findComponent(configs, input.Name)
		if !ok {
			return nil, false, fmt.Errorf("%w: %q in subject %q", ErrUnknownComponent, input.Name, subject.Name)
		}
		if input.Score < 0 || input.Score > config.MaxScore {
			return nil, false, fmt.Errorf("%w: component %q scored %.2f of %.2f", ErrInvalidScore, input.Name, input.Score, config.MaxScore)
		}

		byName[config.Name] = models.ComponentMark{Name: config.Name, Score: input.Score, MaxScore: config.MaxScore}
	}

	// Keep configuration order so repeated recomputation is bit-identical.
	marks := make([]models.ComponentMark, 0, len(configs))
	complete := true
	for _, config := range configs {
		mark, ok := byName[config.Name]
		if !ok {
			complete = false
			continue
		}
		marks = append(marks, mark)
	}

	return marks, complete, nil
}

func findComponent(configs []models.ComponentConfig, name string) (models.ComponentConfig, bool) {
	for _, config := range configs {
		if strings.EqualFold(config.Name, name) {
			return config, true
		}
	}

	return models.ComponentConfig{}, false
}
