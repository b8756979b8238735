package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mzizi-labs/darasa-api/internal/dto"
	"github.com/mzizi-labs/darasa-api/internal/models"
	"github.com/mzizi-labs/darasa-api/internal/repository"
)

// ErrCohortNotFound indicates the class/term has no results at all.
var ErrCohortNotFound = errors.New("cohort has no results")

// ErrIncompleteCohort blocks publication while any result in the cohort is
// still incomplete.
var ErrIncompleteCohort = errors.New("cohort has incomplete results")

// ErrCohortNotRanked blocks publication until a ranking pass has assigned
// every position.
var ErrCohortNotRanked = errors.New("cohort has not been ranked")

// ResultNotifier is the trigger point for downstream notification delivery.
// Retry and delivery semantics belong to the dispatcher, not this engine.
type ResultNotifier interface {
	ResultPublished(ctx context.Context, studentID, resultID uint) error
}

// PublicationService governs the draft/published lifecycle of a cohort.
type PublicationService interface {
	Publish(ctx context.Context, institutionID, classID, termID uint) (dto.PublishResponse, error)
	Unpublish(ctx context.Context, classID, termID uint) (dto.PublishResponse, error)
}

type publicationService struct {
	results  repository.ResultRepository
	scales   GradeScaleService
	ranking  RankingService
	notifier ResultNotifier
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewPublicationService constructs the publication workflow.
func NewPublicationService(results repository.ResultRepository, scales GradeScaleService, ranking RankingService, notifier ResultNotifier, logger zerolog.Logger) PublicationService {
	return &publicationService{
		results:  results,
		scales:   scales,
		ranking:  ranking,
		notifier: notifier,
		logger:   logger.With().Str("component", "publication_service").Logger(),
		tracer:   otel.Tracer("github.com/mzizi-labs/darasa-api/internal/service/publication"),
	}
}

// Publish pins the institution's active scale onto every result of the cohort
// and freezes the cohort as published. Publication demands a fully complete,
// fully ranked cohort; a later re-publish re-pins to whatever scale is active
// at that time.
func (s *publicationService) Publish(ctx context.Context, institutionID, classID, termID uint) (dto.PublishResponse, error) {
	ctx, span := s.tracer.Start(ctx, "cohort.publish")
	span.SetAttributes(
		attribute.Int64("cohort.class_id", int64(classID)),
		attribute.Int64("cohort.term_id", int64(termID)),
	)
	defer span.End()

	results, err := s.results.ListByCohort(ctx, classID, termID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cohort_read_failed")
		return dto.PublishResponse{}, err
	}
	if len(results) == 0 {
		return dto.PublishResponse{}, ErrCohortNotFound
	}

	for _, result := range results {
		if result.Incomplete {
			span.SetStatus(codes.Error, "incomplete_cohort")
			return dto.PublishResponse{}, ErrIncompleteCohort
		}
		if result.Position == nil {
			span.SetStatus(codes.Error, "cohort_not_ranked")
			return dto.PublishResponse{}, ErrCohortNotRanked
		}
	}

	scale, err := s.scales.ActiveScale(ctx, institutionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "active_scale_missing")
		return dto.PublishResponse{}, err
	}

	published, err := s.results.PublishCohort(ctx, classID, termID, scale.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish_write_failed")
		return dto.PublishResponse{}, err
	}

	s.ranking.InvalidateBroadsheet(ctx, classID, termID)

	if s.notifier != nil {
		for _, result := range results {
			if err := s.notifier.ResultPublished(ctx, result.StudentID, result.ID); err != nil {
				s.logger.Warn().Err(err).
					Uint("student_id", result.StudentID).
					Uint("result_id", result.ID).
					Msg("failed to dispatch publication notification")
			}
		}
	}

	s.logger.Info().
		Uint("class_id", classID).
		Uint("term_id", termID).
		Uint("scale_id", scale.ID).
		Int64("published", published).
		Msg("cohort published")

	span.SetAttributes(
		attribute.Int64("cohort.published", published),
		attribute.Int64("cohort.scale_id", int64(scale.ID)),
	)

	return dto.PublishResponse{
		ClassID:      classID,
		TermID:       termID,
		Published:    int(published),
		GradeScaleID: scale.ID,
		Status:       models.ResultStatusPublished,
	}, nil
}

// Unpublish reverts the cohort to draft. Computed totals, positions and the
// pinned scale are retained as the audit trail; only the status flips.
func (s *publicationService) Unpublish(ctx context.Context, classID, termID uint) (dto.PublishResponse, error) {
	results, err := s.results.ListByCohort(ctx, classID, termID)
	if err != nil {
		return dto.PublishResponse{}, err
	}
	if len(results) == 0 {
		return dto.PublishResponse{}, ErrCohortNotFound
	}

	reverted, err := s.results.UnpublishCohort(ctx, classID, termID)
	if err != nil {
		return dto.PublishResponse{}, err
	}

	s.ranking.InvalidateBroadsheet(ctx, classID, termID)

	var pinned uint
	if results[0].GradeScaleID != nil {
		pinned = *results[0].GradeScaleID
	}

	s.logger.Info().
		Uint("class_id", classID).
		Uint("term_id", termID).
		Int64("reverted", reverted).
		Msg("cohort unpublished")

	return dto.PublishResponse{
		ClassID:      classID,
		TermID:       termID,
		Published:    int(reverted),
		GradeScaleID: pinned,
		Status:       models.ResultStatusDraft,
	}, nil
}
