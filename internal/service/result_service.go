package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mzizi-labs/darasa-api/internal/dto"
	"github.com/mzizi-labs/darasa-api/internal/models"
	"github.com/mzizi-labs/darasa-api/internal/repository"
)

// ErrResultNotFound indicates no term result exists for the student.
var ErrResultNotFound = errors.New("result not found")

// ResultService combines a student's subject results into one term result.
type ResultService interface {
	RecomputeStudent(ctx context.Context, institutionID, studentID, classID, termID uint) error
	RecomputeCohort(ctx context.Context, institutionID, classID, termID uint) (int, error)
	StudentResult(ctx context.Context, studentID, termID uint) (dto.StudentResultResponse, error)
}

type resultService struct {
	results        repository.ResultRepository
	subjectResults repository.SubjectResultRepository
	subjects       repository.SubjectRepository
	institutions   repository.InstitutionRepository
	students       repository.StudentRepository
	scales         GradeScaleService
	logger         zerolog.Logger
}

// NewResultService constructs the term result aggregation service.
func NewResultService(results repository.ResultRepository, subjectResults repository.SubjectResultRepository, subjects repository.SubjectRepository, institutions repository.InstitutionRepository, students repository.StudentRepository, scales GradeScaleService, logger zerolog.Logger) ResultService {
	return &resultService{
		results:        results,
		subjectResults: subjectResults,
		subjects:       subjects,
		institutions:   institutions,
		students:       students,
		scales:         scales,
		logger:         logger.With().Str("component", "result_service").Logger(),
	}
}

// TermAggregate is the pure outcome of combining subject results for one student.
type TermAggregate struct {
	TotalScore   float64
	AverageScore float64
	SubjectCount int
	Incomplete   bool
}

// AggregateTerm computes the term totals for one student. TotalScore sums the
// normalized percentages of every required subject with a result present.
// SubjectCount is the number of required subjects, not the number of results,
// so a missing required subject keeps the aggregate incomplete. The average is
// either the simple mean over required subjects or the credit-hour-weighted
// mean, per the institution's policy; an incomplete aggregate still carries
// best-effort figures.
func AggregateTerm(required []models.Subject, subjectResults []models.SubjectResult, policy models.WeightingPolicy) TermAggregate {
	bySubject := make(map[uint]models.SubjectResult, len(subjectResults))
	for _, sr := range subjectResults {
		bySubject[sr.SubjectID] = sr
	}

	aggregate := TermAggregate{SubjectCount: len(required)}

	var weightedSum, creditSum float64
	for _, subject := range required {
		creditSum += subject.CreditHours

		sr, ok := bySubject[subject.ID]
		if !ok {
			aggregate.Incomplete = true
			continue
		}
		if sr.Incomplete {
			aggregate.Incomplete = true
		}

		aggregate.TotalScore += sr.TotalScore
		weightedSum += sr.TotalScore * subject.CreditHours
	}

	switch {
	case policy == models.WeightingCredit && creditSum > 0:
		aggregate.AverageScore = roundScore(weightedSum / creditSum)
	case aggregate.SubjectCount > 0:
		aggregate.AverageScore = roundScore(aggregate.TotalScore / float64(aggregate.SubjectCount))
	}
	aggregate.TotalScore = roundScore(aggregate.TotalScore)

	return aggregate
}

// RecomputeStudent rebuilds the term result for one student from their
// subject results. The write is an idempotent upsert: unchanged inputs yield
// an identical stored row.
func (s *resultService) RecomputeStudent(ctx context.Context, institutionID, studentID, classID, termID uint) error {
	institution, err := s.institutions.GetByID(ctx, institutionID)
	if err != nil {
		return err
	}

	subjects, err := s.subjects.ListByClassTerm(ctx, classID, termID)
	if err != nil {
		return err
	}
	required := make([]models.Subject, 0, len(subjects))
	for _, subject := range subjects {
		if subject.Required {
			required = append(required, subject)
		}
	}

	subjectResults, err := s.subjectResults.ListByStudentTerm(ctx, studentID, termID)
	if err != nil {
		return err
	}
	scoped := subjectResults[:0]
	for _, sr := range subjectResults {
		if sr.ClassID == classID {
			scoped = append(scoped, sr)
		}
	}

	aggregate := AggregateTerm(required, scoped, institution.AveragePolicy())

	result := models.Result{
		InstitutionID: institutionID,
		StudentID:     studentID,
		ClassID:       classID,
		TermID:        termID,
		TotalScore:    aggregate.TotalScore,
		AverageScore:  aggregate.AverageScore,
		SubjectCount:  aggregate.SubjectCount,
		Incomplete:    aggregate.Incomplete,
		Status:        models.ResultStatusDraft,
	}

	if err := s.results.Upsert(ctx, &result); err != nil {
		return err
	}

	s.logger.Debug().
		Uint("student_id", studentID).
		Uint("class_id", classID).
		Uint("term_id", termID).
		Float64("average", aggregate.AverageScore).
		Bool("incomplete", aggregate.Incomplete).
		Msg("term result recomputed")

	return nil
}

// RecomputeCohort rebuilds every student's term result for a class/term ahead
// of a ranking pass. Returns the number of students recomputed.
func (s *resultService) RecomputeCohort(ctx context.Context, institutionID, classID, termID uint) (int, error) {
	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return 0, err
	}

	for _, student := range students {
		if err := s.RecomputeStudent(ctx, institutionID, student.ID, classID, termID); err != nil {
			return 0, err
		}
	}

	return len(students), nil
}

// StudentResult serves one student's term view. Grades of a published result
// are resolved through its pinned scale so later scale changes never alter
// what was published.
func (s *resultService) StudentResult(ctx context.Context, studentID, termID uint) (dto.StudentResultResponse, error) {
	result, err := s.results.GetByStudentTerm(ctx, studentID, termID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResultResponse{}, ErrResultNotFound
		}
		return dto.StudentResultResponse{}, err
	}

	subjectResults, err := s.subjectResults.ListByStudentTerm(ctx, studentID, termID)
	if err != nil {
		return dto.StudentResultResponse{}, err
	}

	response := dto.StudentResultResponse{
		Result:   dto.NewResultResponse(result),
		Subjects: make([]dto.SubjectResultResponse, 0, len(subjectResults)),
	}

	var pinned *models.GradeScale
	if result.IsPublished() && result.GradeScaleID != nil {
		scale, err := s.scales.ScaleByID(ctx, *result.GradeScaleID)
		if err != nil {
			return dto.StudentResultResponse{}, err
		}
		pinned = &scale
	}

	for _, sr := range subjectResults {
		line := dto.NewSubjectResultResponse(sr)
		if pinned != nil {
			band, err := ResolveGrade(*pinned, sr.TotalScore)
			if err != nil {
				return dto.StudentResultResponse{}, err
			}
			line.Grade = band.Grade
			line.Points = band.Points
		}
		response.Subjects = append(response.Subjects, line)
	}

	return response, nil
}
