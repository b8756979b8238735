package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mzizi-labs/darasa-api/internal/dto"
	"github.com/mzizi-labs/darasa-api/internal/models"
	"github.com/mzizi-labs/darasa-api/internal/observability"
	"github.com/mzizi-labs/darasa-api/internal/repository"
)

// ErrRecomputeConflict indicates the ranking pass kept racing concurrent
// cohort edits and gave up after its retry budget.
var ErrRecomputeConflict = errors.New("cohort recompute conflict")

const defaultRankingRetries = 3

// RankedPosition pairs a result with its competition rank. Incomplete results
// carry a nil position.
type RankedPosition struct {
	ResultID uint
	Position *int
}

// RankCohortResults applies standard competition ranking to a cohort: results
// are ordered by average descending, equal averages share a position, and the
// next distinct average is placed at 1 + the number of entries above it, so
// positions can skip (1,1,3,4). Incomplete results are excluded and ranked
// nil. The second return value is the count of ranked (complete) results.
func RankCohortResults(results []models.Result) ([]RankedPosition, int) {
	complete := make([]models.Result, 0, len(results))
	positions := make([]RankedPosition, 0, len(results))

	for _, result := range results {
		if result.Incomplete {
			positions = append(positions, RankedPosition{ResultID: result.ID})
			continue
		}
		complete = append(complete, result)
	}

	sort.SliceStable(complete, func(i, j int) bool {
		if complete[i].AverageScore != complete[j].AverageScore {
			return complete[i].AverageScore > complete[j].AverageScore
		}
		return complete[i].StudentID < complete[j].StudentID
	})

	rank := 0
	for i, result := range complete {
		if i == 0 || result.AverageScore != complete[i-1].AverageScore {
			rank = i + 1
		}
		position := rank
		positions = append(positions, RankedPosition{ResultID: result.ID, Position: &position})
	}

	return positions, len(complete)
}

// RankingService ranks class/term cohorts and serves the broadsheet view.
type RankingService interface {
	RankCohort(ctx context.Context, classID, termID uint) (dto.RecomputeResponse, error)
	Broadsheet(ctx context.Context, classID, termID uint) (dto.BroadsheetResponse, error)
	InvalidateBroadsheet(ctx context.Context, classID, termID uint)
}

type rankingService struct {
	results        repository.ResultRepository
	subjectResults repository.SubjectResultRepository
	students       repository.StudentRepository
	cache          *redis.Client
	cacheTTL       time.Duration
	maxRetries     int
	logger         zerolog.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// NewRankingService constructs the cohort ranker.
func NewRankingService(results repository.ResultRepository, subjectResults repository.SubjectResultRepository, students repository.StudentRepository, cache *redis.Client, cacheTTL time.Duration, maxRetries int, logger zerolog.Logger) RankingService {
	if maxRetries <= 0 {
		maxRetries = defaultRankingRetries
	}

	return &rankingService{
		results:        results,
		subjectResults: subjectResults,
		students:       students,
		cache:          cache,
		cacheTTL:       cacheTTL,
		maxRetries:     maxRetries,
		logger:         logger.With().Str("component", "ranking_service").Logger(),
		tracer:         otel.Tracer("github.com/mzizi-labs/darasa-api/internal/service/ranking"),
		now:            time.Now,
	}
}

// RankCohort rewrites every position in the cohort from a consistent
// snapshot. The whole pass retries when a concurrent edit bumps the cohort
// version mid-flight; partial rankings are never observable.
func (s *rankingService) RankCohort(ctx context.Context, classID, termID uint) (dto.RecomputeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "cohort.rank")
	span.SetAttributes(
		attribute.Int64("cohort.class_id", int64(classID)),
		attribute.Int64("cohort.term_id", int64(termID)),
	)
	defer span.End()

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		version, err := s.results.CohortVersion(ctx, classID, termID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "version_read_failed")
			return dto.RecomputeResponse{}, err
		}

		results, err := s.results.ListByCohort(ctx, classID, termID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cohort_read_failed")
			return dto.RecomputeResponse{}, err
		}

		positions, ranked := RankCohortResults(results)
		updates := make([]repository.RankingUpdate, 0, len(positions))
		for _, position := range positions {
			updates = append(updates, repository.RankingUpdate{
				ResultID:      position.ResultID,
				Position:      position.Position,
				TotalStudents: ranked,
			})
		}

		err = s.results.ReplaceCohortRanking(ctx, classID, termID, version, updates)
		if errors.Is(err, repository.ErrCohortVersionConflict) {
			observability.RankingConflicts().Inc()
			s.logger.Warn().
				Uint("class_id", classID).
				Uint("term_id", termID).
				Int("attempt", attempt+1).
				Msg("cohort changed during ranking, retrying full pass")
			span.AddEvent("ranking_retry")
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "ranking_write_failed")
			return dto.RecomputeResponse{}, err
		}

		excluded := len(results) - ranked
		if excluded > 0 {
			s.logger.Warn().
				Uint("class_id", classID).
				Uint("term_id", termID).
				Int("excluded", excluded).
				Msg("incomplete results excluded from ranking")
		}

		s.InvalidateBroadsheet(ctx, classID, termID)

		span.SetAttributes(
			attribute.Int("cohort.ranked", ranked),
			attribute.Int("cohort.excluded", excluded),
		)

		return dto.RecomputeResponse{ClassID: classID, TermID: termID, Ranked: ranked, Excluded: excluded}, nil
	}

	span.SetStatus(codes.Error, "retries_exhausted")

	return dto.RecomputeResponse{}, ErrRecomputeConflict
}

func broadsheetCacheKey(classID, termID uint) string {
	return fmt.Sprintf("broadsheet:%d:%d", classID, termID)
}

// Broadsheet serves the ranked class/term view, cached until the next
// recompute, ranking or publication event.
func (s *rankingService) Broadsheet(ctx context.Context, classID, termID uint) (dto.BroadsheetResponse, error) {
	cacheKey := broadsheetCacheKey(classID, termID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.BroadsheetResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("class_id", classID).Uint("term_id", termID).Msg("broadsheet cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read broadsheet cache")
		}
	}

	results, err := s.results.ListByCohort(ctx, classID, termID)
	if err != nil {
		return dto.BroadsheetResponse{}, err
	}

	subjectResults, err := s.subjectResults.ListByCohort(ctx, classID, termID)
	if err != nil {
		return dto.BroadsheetResponse{}, err
	}
	linesByStudent := make(map[uint][]dto.BroadsheetSubjectLine)
	for _, sr := range subjectResults {
		linesByStudent[sr.StudentID] = append(linesByStudent[sr.StudentID], dto.BroadsheetSubjectLine{
			SubjectID:  sr.SubjectID,
			Subject:    sr.Subject.Name,
			TotalScore: sr.TotalScore,
			Grade:      sr.Grade,
			Points:     sr.Points,
			Incomplete: sr.Incomplete,
		})
	}

	response := dto.BroadsheetResponse{
		ClassID:     classID,
		TermID:      termID,
		GeneratedAt: s.now().UTC(),
		Entries:     make([]dto.BroadsheetEntry, 0, len(results)),
	}

	for _, result := range results {
		student, err := s.students.GetByID(ctx, result.StudentID)
		if err != nil {
			return dto.BroadsheetResponse{}, err
		}

		if result.Incomplete {
			response.Excluded++
		}
		response.TotalStudents = result.TotalStudents

		response.Entries = append(response.Entries, dto.BroadsheetEntry{
			StudentID:    result.StudentID,
			StudentName:  student.Name,
			TotalScore:   result.TotalScore,
			AverageScore: result.AverageScore,
			Position:     result.Position,
			Incomplete:   result.Incomplete,
			Status:       result.Status,
			Subjects:     linesByStudent[result.StudentID],
		})
	}

	sort.SliceStable(response.Entries, func(i, j int) bool {
		a, b := response.Entries[i], response.Entries[j]
		switch {
		case a.Position != nil && b.Position != nil && *a.Position != *b.Position:
			return *a.Position < *b.Position
		case a.Position != nil && b.Position == nil:
			return true
		case a.Position == nil && b.Position != nil:
			return false
		default:
			return a.StudentID < b.StudentID
		}
	})

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write broadsheet cache")
			}
		}
	}

	return response, nil
}

// InvalidateBroadsheet drops the cached view after any cohort-level change.
func (s *rankingService) InvalidateBroadsheet(ctx context.Context, classID, termID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, broadsheetCacheKey(classID, termID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate broadsheet cache")
	}
}
