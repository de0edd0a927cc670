package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/session"
)

// fakeRepo is an in-memory Repository. Transactions run directly against it.
type fakeRepo struct {
	mu          sync.Mutex
	exercises   map[string]*models.Exercise
	tests       map[string]*models.Test
	courses     map[string]*models.Course
	resolutions map[string]*models.TestResolution

	// duplicateCreates makes that many resolution inserts fail on the unique index
	duplicateCreates int
	invalidations    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		exercises:   make(map[string]*models.Exercise),
		tests:       make(map[string]*models.Test),
		courses:     make(map[string]*models.Course),
		resolutions: make(map[string]*models.TestResolution),
	}
}

func (r *fakeRepo) Exercise() repositories.ExerciseRepository     { return fakeExercises{r} }
func (r *fakeRepo) Test() repositories.TestRepository             { return fakeTests{r} }
func (r *fakeRepo) Course() repositories.CourseRepository         { return fakeCourses{r} }
func (r *fakeRepo) Resolution() repositories.ResolutionRepository { return fakeResolutions{r} }

func (r *fakeRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }
func (r *fakeRepo) Close() error                   { return nil }

type fakeExercises struct{ r *fakeRepo }

func (f fakeExercises) Create(ctx context.Context, tx *gorm.DB, e *models.Exercise) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.exercises[e.ID] = e
	return nil
}

func (f fakeExercises) CreateBatch(ctx context.Context, tx *gorm.DB, es []*models.Exercise) error {
	for _, e := range es {
		if err := f.Create(ctx, tx, e); err != nil {
			return err
		}
	}
	return nil
}

func (f fakeExercises) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Exercise, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	e, ok := f.r.exercises[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return e, nil
}

func (f fakeExercises) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Exercise, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Exercise
	for _, id := range ids {
		if e, ok := f.r.exercises[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f fakeExercises) List(ctx context.Context, tx *gorm.DB, filters repositories.ExerciseFilters) ([]*models.Exercise, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Exercise
	for _, e := range f.r.exercises {
		if filters.Type != nil && e.Type != *filters.Type {
			continue
		}
		if filters.Visibility != nil && e.Visibility != *filters.Visibility {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f fakeExercises) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.exercises[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.r.exercises, id)
	return nil
}

type fakeTests struct{ r *fakeRepo }

func (f fakeTests) Create(ctx context.Context, tx *gorm.DB, t *models.Test) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.tests[t.ID] = t
	return nil
}

func (f fakeTests) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Test, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	t, ok := f.r.tests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return t, nil
}

func (f fakeTests) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Test
	for _, t := range f.r.tests {
		if filters.Visibility != nil && t.Visibility != *filters.Visibility {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (f fakeTests) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.tests[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.r.tests, id)
	return nil
}

type fakeCourses struct{ r *fakeRepo }

func (f fakeCourses) Create(ctx context.Context, tx *gorm.DB, c *models.Course) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.courses[c.ID] = c
	return nil
}

func (f fakeCourses) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	c, ok := f.r.courses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

func (f fakeCourses) ListByMember(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Course, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Course
	for _, c := range f.r.courses {
		for _, m := range c.Members {
			if m.UserID == userID {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeCourses) AddMember(ctx context.Context, tx *gorm.DB, m *models.CourseMember) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	c, ok := f.r.courses[m.CourseID]
	if !ok {
		return repositories.ErrNotFound
	}
	for i, existing := range c.Members {
		if existing.UserID == m.UserID {
			c.Members[i].Role = m.Role
			return nil
		}
	}
	c.Members = append(c.Members, *m)
	return nil
}

func (f fakeCourses) RemoveMember(ctx context.Context, tx *gorm.DB, courseID, userID string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	c, ok := f.r.courses[courseID]
	if !ok {
		return repositories.ErrNotFound
	}
	for i, m := range c.Members {
		if m.UserID == userID {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f fakeCourses) IsMember(ctx context.Context, tx *gorm.DB, courseID, userID string) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	c, ok := f.r.courses[courseID]
	if !ok {
		return false, nil
	}
	return isMember(c, userID), nil
}

type fakeResolutions struct{ r *fakeRepo }

func (f fakeResolutions) Create(ctx context.Context, tx *gorm.DB, res *models.TestResolution) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if f.r.duplicateCreates > 0 {
		f.r.duplicateCreates--
		return repositories.ErrDuplicate
	}
	f.r.resolutions[res.ID] = res
	return nil
}

func (f fakeResolutions) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TestResolution, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	res, ok := f.r.resolutions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return res, nil
}

func (f fakeResolutions) Update(ctx context.Context, tx *gorm.DB, res *models.TestResolution) error {
	return f.Create(ctx, tx, res)
}

func (f fakeResolutions) ListByTest(ctx context.Context, tx *gorm.DB, testID string, filters repositories.ResolutionFilters) ([]*models.TestResolution, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.TestResolution
	for _, res := range f.r.resolutions {
		if res.TestID != testID {
			continue
		}
		if filters.StudentID != nil && res.StudentID != *filters.StudentID {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmissionNr < out[j].SubmissionNr })
	return out, int64(len(out)), nil
}

func (f fakeResolutions) CountByStudent(ctx context.Context, tx *gorm.DB, testID, studentID string) (int64, error) {
	list, _, err := f.ListByTest(ctx, tx, testID, repositories.ResolutionFilters{StudentID: &studentID})
	return int64(len(list)), err
}

func (f fakeResolutions) NextSubmissionNr(ctx context.Context, tx *gorm.DB, testID, studentID string) (int, error) {
	last, err := f.LastByStudent(ctx, tx, testID, studentID)
	if repositories.IsNotFoundError(err) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return last.SubmissionNr + 1, nil
}

func (f fakeResolutions) InvalidateStats(ctx context.Context, testID, studentID string) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.invalidations++
}

func (f fakeResolutions) LastByStudent(ctx context.Context, tx *gorm.DB, testID, studentID string) (*models.TestResolution, error) {
	list, _, err := f.ListByTest(ctx, tx, testID, repositories.ResolutionFilters{StudentID: &studentID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repositories.ErrNotFound
	}
	return list[len(list)-1], nil
}

// fakeManager wraps a fakeRepo as a RepositoryManager
type fakeManager struct {
	repo     *fakeRepo
	shutdown bool
}

func (m *fakeManager) Initialize() error                      { return nil }
func (m *fakeManager) GetRepository() repositories.Repository { return m.repo }
func (m *fakeManager) HealthCheck(ctx context.Context) error  { return nil }
func (m *fakeManager) Shutdown(ctx context.Context) error     { m.shutdown = true; return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func specialist(id string, courses ...string) *session.Session {
	return userSession(id, models.RoleSpecialist, courses...)
}

func student(id string, courses ...string) *session.Session {
	return userSession(id, models.RoleStudent, courses...)
}

func userSession(id string, role models.UserRole, courses ...string) *session.Session {
	refs := make([]models.CourseRef, 0, len(courses))
	for _, c := range courses {
		refs = append(refs, models.CourseRef{ID: c})
	}
	return session.New(&models.User{ID: id, Role: role}, refs)
}

func ptr[T any](v T) *T { return &v }

func seedExercise(t *testing.T, repo *fakeRepo, id, owner string, v models.Visibility, courseID *string) *models.Exercise {
	t.Helper()
	e := &models.Exercise{
		ID:           id,
		Title:        "exercise " + id,
		Type:         models.TypeOpenAnswer,
		Visibility:   v,
		SpecialistID: owner,
		CourseID:     courseID,
	}
	repo.exercises[id] = e
	return e
}
