package service_test

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mzizi-labs/darasa-api/internal/models"
	"github.com/mzizi-labs/darasa-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type cohortKey struct {
	classID uint
	termID  uint
}

type fakeScaleRepo struct {
	scales map[uint]models.GradeScale
	nextID uint
}

func newFakeScaleRepo() *fakeScaleRepo {
	return &fakeScaleRepo{scales: make(map[uint]models.GradeScale), nextID: 1}
}

func (r *fakeScaleRepo) Create(_ context.Context, scale *models.GradeScale) error {
	scale.ID = r.nextID
	r.nextID++
	for i := range scale.Ranges {
		scale.Ranges[i].GradeScaleID = scale.ID
	}
	r.scales[scale.ID] = *scale
	return nil
}

func (r *fakeScaleRepo) Update(_ context.Context, scale *models.GradeScale) error {
	if _, ok := r.scales[scale.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.scales[scale.ID] = *scale
	return nil
}

func (r *fakeScaleRepo) GetByID(_ context.Context, id uint) (models.GradeScale, error) {
	scale, ok := r.scales[id]
	if !ok {
		return models.GradeScale{}, gorm.ErrRecordNotFound
	}
	return scale, nil
}

func (r *fakeScaleRepo) GetActive(_ context.Context, institutionID uint) (models.GradeScale, error) {
	for _, scale := range r.scales {
		if scale.InstitutionID == institutionID && scale.IsActive {
			return scale, nil
		}
	}
	return models.GradeScale{}, gorm.ErrRecordNotFound
}

func (r *fakeScaleRepo) List(_ context.Context, institutionID uint) ([]models.GradeScale, error) {
	var scales []models.GradeScale
	for _, scale := range r.scales {
		if scale.InstitutionID == institutionID {
			scales = append(scales, scale)
		}
	}
	sort.Slice(scales, func(i, j int) bool { return scales[i].ID < scales[j].ID })
	return scales, nil
}

func (r *fakeScaleRepo) Activate(_ context.Context, institutionID, scaleID uint) error {
	for id, scale := range r.scales {
		if scale.InstitutionID != institutionID {
			continue
		}
		scale.IsActive = id == scaleID
		r.scales[id] = scale
	}
	return nil
}

type fakeResultRepo struct {
	results   map[uint]models.Result
	versions  map[cohortKey]uint
	nextID    uint
	conflicts int
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{
		results:  make(map[uint]models.Result),
		versions: make(map[cohortKey]uint),
		nextID:   1,
	}
}

func (r *fakeResultRepo) put(result models.Result) {
	if result.ID == 0 {
		result.ID = r.nextID
		r.nextID++
	} else if result.ID >= r.nextID {
		r.nextID = result.ID + 1
	}
	r.results[result.ID] = result
}

func (r *fakeResultRepo) Upsert(_ context.Context, result *models.Result) error {
	for _, existing := range r.results {
		if existing.StudentID == result.StudentID && existing.ClassID == result.ClassID && existing.TermID == result.TermID {
			result.ID = existing.ID
			result.CreatedAt = existing.CreatedAt
			result.Position = existing.Position
			result.TotalStudents = existing.TotalStudents
			result.Status = existing.Status
			result.GradeScaleID = existing.GradeScaleID
			break
		}
	}
	if result.ID == 0 {
		result.ID = r.nextID
		r.nextID++
	}
	r.results[result.ID] = *result
	r.versions[cohortKey{result.ClassID, result.TermID}]++
	return nil
}

func (r *fakeResultRepo) GetByStudentTerm(_ context.Context, studentID, termID uint) (models.Result, error) {
	for _, result := range r.results {
		if result.StudentID == studentID && result.TermID == termID {
			return result, nil
		}
	}
	return models.Result{}, gorm.ErrRecordNotFound
}

func (r *fakeResultRepo) ListByCohort(_ context.Context, classID, termID uint) ([]models.Result, error) {
	var results []models.Result
	for _, result := range r.results {
		if result.ClassID == classID && result.TermID == termID {
			results = append(results, result)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].StudentID < results[j].StudentID })
	return results, nil
}

func (r *fakeResultRepo) CohortVersion(_ context.Context, classID, termID uint) (uint, error) {
	return r.versions[cohortKey{classID, termID}], nil
}

func (r *fakeResultRepo) BumpCohortVersion(_ context.Context, classID, termID uint) error {
	r.versions[cohortKey{classID, termID}]++
	return nil
}

func (r *fakeResultRepo) ReplaceCohortRanking(_ context.Context, classID, termID, expectedVersion uint, updates []repository.RankingUpdate) error {
	key := cohortKey{classID, termID}
	if r.conflicts > 0 {
		r.conflicts--
		r.versions[key]++
		return repository.ErrCohortVersionConflict
	}
	if r.versions[key] != expectedVersion {
		return repository.ErrCohortVersionConflict
	}
	for _, update := range updates {
		result, ok := r.results[update.ResultID]
		if !ok {
			continue
		}
		result.Position = update.Position
		result.TotalStudents = update.TotalStudents
		r.results[update.ResultID] = result
	}
	return nil
}

func (r *fakeResultRepo) PublishCohort(_ context.Context, classID, termID, scaleID uint) (int64, error) {
	var published int64
	for id, result := range r.results {
		if result.ClassID != classID || result.TermID != termID {
			continue
		}
		pinned := scaleID
		result.Status = models.ResultStatusPublished
		result.GradeScaleID = &pinned
		r.results[id] = result
		published++
	}
	return published, nil
}

func (r *fakeResultRepo) UnpublishCohort(_ context.Context, classID, termID uint) (int64, error) {
	var reverted int64
	for id, result := range r.results {
		if result.ClassID != classID || result.TermID != termID {
			continue
		}
		result.Status = models.ResultStatusDraft
		r.results[id] = result
		reverted++
	}
	return reverted, nil
}

func (r *fakeResultRepo) CountPublishedByScale(_ context.Context, scaleID uint) (int64, error) {
	var count int64
	for _, result := range r.results {
		if result.Status == models.ResultStatusPublished && result.GradeScaleID != nil && *result.GradeScaleID == scaleID {
			count++
		}
	}
	return count, nil
}

type subjectResultKey struct {
	studentID uint
	subjectID uint
	termID    uint
}

type fakeSubjectResultRepo struct {
	results map[subjectResultKey]models.SubjectResult
	nextID  uint
}

func newFakeSubjectResultRepo() *fakeSubjectResultRepo {
	return &fakeSubjectResultRepo{results: make(map[subjectResultKey]models.SubjectResult), nextID: 1}
}

func (r *fakeSubjectResultRepo) Upsert(_ context.Context, result *models.SubjectResult) error {
	key := subjectResultKey{result.StudentID, result.SubjectID, result.TermID}
	if existing, ok := r.results[key]; ok {
		result.ID = existing.ID
		result.CreatedAt = existing.CreatedAt
	} else {
		result.ID = r.nextID
		r.nextID++
	}
	r.results[key] = *result
	return nil
}

func (r *fakeSubjectResultRepo) GetByKey(_ context.Context, studentID, subjectID, termID uint) (models.SubjectResult, error) {
	result, ok := r.results[subjectResultKey{studentID, subjectID, termID}]
	if !ok {
		return models.SubjectResult{}, gorm.ErrRecordNotFound
	}
	return result, nil
}

func (r *fakeSubjectResultRepo) ListByStudentTerm(_ context.Context, studentID, termID uint) ([]models.SubjectResult, error) {
	var results []models.SubjectResult
	for _, result := range r.results {
		if result.StudentID == studentID && result.TermID == termID {
			results = append(results, result)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SubjectID < results[j].SubjectID })
	return results, nil
}

func (r *fakeSubjectResultRepo) ListByCohort(_ context.Context, classID, termID uint) ([]models.SubjectResult, error) {
	var results []models.SubjectResult
	for _, result := range r.results {
		if result.ClassID == classID && result.TermID == termID {
			results = append(results, result)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].StudentID != results[j].StudentID {
			return results[i].StudentID < results[j].StudentID
		}
		return results[i].SubjectID < results[j].SubjectID
	})
	return results, nil
}

type fakeSubjectRepo struct {
	subjects map[uint]models.Subject
}

func newFakeSubjectRepo(subjects ...models.Subject) *fakeSubjectRepo {
	repo := &fakeSubjectRepo{subjects: make(map[uint]models.Subject)}
	for _, subject := range subjects {
		repo.subjects[subject.ID] = subject
	}
	return repo
}

func (r *fakeSubjectRepo) GetByID(_ context.Context, id uint) (models.Subject, error) {
	subject, ok := r.subjects[id]
	if !ok {
		return models.Subject{}, gorm.ErrRecordNotFound
	}
	return subject, nil
}

func (r *fakeSubjectRepo) ListByClassTerm(_ context.Context, classID, termID uint) ([]models.Subject, error) {
	var subjects []models.Subject
	for _, subject := range r.subjects {
		if subject.ClassID == classID && subject.TermID == termID {
			subjects = append(subjects, subject)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}

type fakeStudentRepo struct {
	students map[uint]models.Student
}

func newFakeStudentRepo(students ...models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{students: make(map[uint]models.Student)}
	for _, student := range students {
		repo.students[student.ID] = student
	}
	return repo
}

func (r *fakeStudentRepo) GetByID(_ context.Context, id uint) (models.Student, error) {
	student, ok := r.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

func (r *fakeStudentRepo) ListByClass(_ context.Context, classID uint) ([]models.Student, error) {
	var students []models.Student
	for _, student := range r.students {
		if student.ClassID == classID {
			students = append(students, student)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

type fakeInstitutionRepo struct {
	institutions map[uint]models.Institution
}

func newFakeInstitutionRepo(institutions ...models.Institution) *fakeInstitutionRepo {
	repo := &fakeInstitutionRepo{institutions: make(map[uint]models.Institution)}
	for _, institution := range institutions {
		repo.institutions[institution.ID] = institution
	}
	return repo
}

func (r *fakeInstitutionRepo) GetByID(_ context.Context, id uint) (models.Institution, error) {
	institution, ok := r.institutions[id]
	if !ok {
		return models.Institution{}, gorm.ErrRecordNotFound
	}
	return institution, nil
}

type notification struct {
	studentID uint
	resultID  uint
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) ResultPublished(_ context.Context, studentID, resultID uint) error {
	n.sent = append(n.sent, notification{studentID: studentID, resultID: resultID})
	return nil
}

// standardRanges is the default grading table used across the service tests:
// F 0-39.99 (0), C 40-59.99 (2), B 60-79.99 (3), A 80-100 (4).
func standardRanges() []models.GradeRange {
	return []models.GradeRange{
		{MinScore: 0, MaxScore: 39.99, Grade: "F", Points: 0, Remark: "Fail"},
		{MinScore: 40, MaxScore: 59.99, Grade: "C", Points: 2, Remark: "Average"},
		{MinScore: 60, MaxScore: 79.99, Grade: "B", Points: 3, Remark: "Good"},
		{MinScore: 80, MaxScore: 100, Grade: "A", Points: 4, Remark: "Excellent"},
	}
}

func activeScale(id, institutionID uint) models.GradeScale {
	return models.GradeScale{
		ID:            id,
		InstitutionID: institutionID,
		Name:          "Standard Scale",
		IsActive:      true,
		Ranges:        standardRanges(),
	}
}
