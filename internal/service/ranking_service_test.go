package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/mzizi-labs/darasa-api/internal/models"
	"github.com/mzizi-labs/darasa-api/internal/service"
)

func cohortResult(id, studentID uint, average float64, incomplete bool) models.Result {
	return models.Result{
		ID:            id,
		InstitutionID: 1,
		StudentID:     studentID,
		ClassID:       1,
		TermID:        1,
		TotalScore:    average * 3,
		AverageScore:  average,
		SubjectCount:  3,
		Incomplete:    incomplete,
		Status:        models.ResultStatusDraft,
	}
}

func TestRankCohortResultsCompetitionRanking(t *testing.T) {
	results := []models.Result{
		cohortResult(1, 10, 90, false),
		cohortResult(2, 11, 95, false),
		cohortResult(3, 12, 90, false),
		cohortResult(4, 13, 80, false),
	}

	positions, ranked := service.RankCohortResults(results)
	require.Equal(t, 4, ranked)

	byResult := make(map[uint]*int, len(positions))
	for _, position := range positions {
		byResult[position.ResultID] = position.Position
	}

	require.Equal(t, 1, *byResult[2])
	require.Equal(t, 2, *byResult[1])
	require.Equal(t, 2, *byResult[3])
	require.Equal(t, 4, *byResult[4])
}

func TestRankCohortResultsExcludesIncomplete(t *testing.T) {
	results := []models.Result{
		cohortResult(1, 10, 95, false),
		cohortResult(2, 11, 90, true),
		cohortResult(3, 12, 85, false),
	}

	positions, ranked := service.RankCohortResults(results)
	require.Equal(t, 2, ranked)
	require.Len(t, positions, 3)

	byResult := make(map[uint]*int, len(positions))
	for _, position := range positions {
		byResult[position.ResultID] = position.Position
	}

	require.Nil(t, byResult[2])
	require.Equal(t, 1, *byResult[1])
	// The incomplete result does not consume a position.
	require.Equal(t, 2, *byResult[3])
}

func TestRankCohortResultsEmptyCohort(t *testing.T) {
	positions, ranked := service.RankCohortResults(nil)
	require.Empty(t, positions)
	require.Zero(t, ranked)
}

func newRankingEnv(results *fakeResultRepo, subjectResults *fakeSubjectResultRepo, students *fakeStudentRepo, cache *redis.Client) service.RankingService {
	return service.NewRankingService(results, subjectResults, students, cache, time.Minute, 3, testLogger())
}

func TestRankCohortWritesPositions(t *testing.T) {
	resultRepo := newFakeResultRepo()
	resultRepo.put(cohortResult(0, 10, 90, false))
	resultRepo.put(cohortResult(0, 11, 95, false))
	resultRepo.put(cohortResult(0, 12, 90, true))

	svc := newRankingEnv(resultRepo, newFakeSubjectResultRepo(), newFakeStudentRepo(), nil)

	response, err := svc.RankCohort(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 2, response.Ranked)
	require.Equal(t, 1, response.Excluded)

	cohort, err := resultRepo.ListByCohort(context.Background(), 1, 1)
	require.NoError(t, err)
	for _, result := range cohort {
		require.Equal(t, 2, result.TotalStudents)
		switch result.StudentID {
		case 10:
			require.Equal(t, 2, *result.Position)
		case 11:
			require.Equal(t, 1, *result.Position)
		case 12:
			require.Nil(t, result.Position)
		}
	}
}

func TestRankCohortRetriesOnVersionConflict(t *testing.T) {
	resultRepo := newFakeResultRepo()
	resultRepo.put(cohortResult(0, 10, 90, false))
	resultRepo.conflicts = 2

	svc := newRankingEnv(resultRepo, newFakeSubjectResultRepo(), newFakeStudentRepo(), nil)

	response, err := svc.RankCohort(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 1, response.Ranked)
	require.Zero(t, resultRepo.conflicts)
}

func TestRankCohortGivesUpAfterRetryBudget(t *testing.T) {
	resultRepo := newFakeResultRepo()
	resultRepo.put(cohortResult(0, 10, 90, false))
	resultRepo.conflicts = 5

	svc := newRankingEnv(resultRepo, newFakeSubjectResultRepo(), newFakeStudentRepo(), nil)

	_, err := svc.RankCohort(context.Background(), 1, 1)
	require.ErrorIs(t, err, service.ErrRecomputeConflict)
}

func seedBroadsheetCohort(t *testing.T) (*fakeResultRepo, *fakeSubjectResultRepo, *fakeStudentRepo) {
	t.Helper()

	resultRepo := newFakeResultRepo()
	first, second := 1, 2
	a := cohortResult(0, 10, 90, false)
	a.Position = &second
	a.TotalStudents = 2
	b := cohortResult(0, 11, 95, false)
	b.Position = &first
	b.TotalStudents = 2
	resultRepo.put(a)
	resultRepo.put(b)

	subjectResultRepo := newFakeSubjectResultRepo()
	for _, studentID := range []uint{10, 11} {
		sr := models.SubjectResult{
			InstitutionID: 1,
			StudentID:     studentID,
			SubjectID:     1,
			ClassID:       1,
			TermID:        1,
			Marks:         datatypes.NewJSONType([]models.ComponentMark{{Name: "exam", Score: 90, MaxScore: 100}}),
			TotalScore:    90,
			Grade:         "A",
			Points:        4,
			Subject:       models.Subject{ID: 1, Name: "Mathematics"},
		}
		require.NoError(t, subjectResultRepo.Upsert(context.Background(), &sr))
	}

	studentRepo := newFakeStudentRepo(
		models.Student{ID: 10, InstitutionID: 1, ClassID: 1, Name: "Amina"},
		models.Student{ID: 11, InstitutionID: 1, ClassID: 1, Name: "Brian"},
	)

	return resultRepo, subjectResultRepo, studentRepo
}

func TestBroadsheetOrdersByPosition(t *testing.T) {
	resultRepo, subjectResultRepo, studentRepo := seedBroadsheetCohort(t)
	svc := newRankingEnv(resultRepo, subjectResultRepo, studentRepo, nil)

	response, err := svc.Broadsheet(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 2, response.TotalStudents)
	require.Len(t, response.Entries, 2)
	require.Equal(t, "Brian", response.Entries[0].StudentName)
	require.Equal(t, "Amina", response.Entries[1].StudentName)
	require.Len(t, response.Entries[0].Subjects, 1)
	require.Equal(t, "Mathematics", response.Entries[0].Subjects[0].Subject)
}

func TestBroadsheetServedFromCacheUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	resultRepo, subjectResultRepo, studentRepo := seedBroadsheetCohort(t)
	svc := newRankingEnv(resultRepo, subjectResultRepo, studentRepo, cache)

	first, err := svc.Broadsheet(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)

	// Mutate the backing store; the cached view must not see it.
	resultRepo.put(cohortResult(0, 12, 70, false))
	studentRepo.students[12] = models.Student{ID: 12, InstitutionID: 1, ClassID: 1, Name: "Carol"}

	cached, err := svc.Broadsheet(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, cached.Entries, 2)

	svc.InvalidateBroadsheet(context.Background(), 1, 1)

	fresh, err := svc.Broadsheet(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, fresh.Entries, 3)
}
