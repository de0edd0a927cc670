package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/validator"
)

type testService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	now       func() time.Time
}

func NewTestService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) TestService {
	return &testService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create stores a new test owned by the calling specialist. The ID and the
// creation date are always assigned here.
func (s *testService) Create(ctx context.Context, sess *session.Session, req *models.TestCreateRequest) (*models.Test, error) {
	if err := requireRole(sess, "test", "create", models.RoleSpecialist); err != nil {
		return nil, err
	}
	if errs := s.validator.GetBusinessValidator().ValidateTestCreate(req); len(errs) > 0 {
		return nil, errs
	}

	if req.CourseID != nil {
		if err := s.checkCourse(ctx, sess, *req.CourseID); err != nil {
			return nil, err
		}
	}
	if err := s.checkExercises(ctx, sess, req.Groups); err != nil {
		return nil, err
	}

	test := &models.Test{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		SpecialistID: sess.UserID(),
		CourseID:     req.CourseID,
		Visibility:   req.Visibility,
		Groups:       req.Groups,
		CreationDate: s.now().UTC(),
		PublishDate:  req.PublishDate,
	}

	s.logger.Info("Creating test", "specialist_id", test.SpecialistID, "groups", len(test.Groups))

	if err := s.repo.Test().Create(ctx, nil, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	publishOrLog(ctx, s.publisher, s.logger, events.NewEvent(events.TestCreated, test.ID, events.TestPayload{
		TestID:       test.ID,
		SpecialistID: test.SpecialistID,
		Exercises:    len(test.ExerciseIDs()),
	}))
	s.logger.Info("Test created successfully", "test_id", test.ID)
	return test, nil
}

// checkCourse requires the course to exist and the specialist to belong to it
func (s *testService) checkCourse(ctx context.Context, sess *session.Session, courseID string) error {
	if _, err := s.repo.Course().GetByID(ctx, nil, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ValidationErrors{*NewValidationError("course_id", "course does not exist", courseID)}
		}
		return fmt.Errorf("failed to get course: %w", err)
	}

	member, err := s.repo.Course().IsMember(ctx, nil, courseID, sess.UserID())
	if err != nil {
		return fmt.Errorf("failed to check course membership: %w", err)
	}
	if !member {
		return NewPermissionError(sess.UserID(), courseID, "course", "create test in", "not a member of the course")
	}
	return nil
}

// checkExercises requires every referenced exercise to exist and be readable
func (s *testService) checkExercises(ctx context.Context, sess *session.Session, groups []models.TestGroup) error {
	var ids []string
	for _, g := range groups {
		ids = append(ids, g.ExerciseIDs...)
	}

	found, err := s.repo.Exercise().GetByIDs(ctx, nil, ids)
	if err != nil {
		return fmt.Errorf("failed to load exercises: %w", err)
	}
	byID := make(map[string]*models.Exercise, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}

	var errs ValidationErrors
	for i, g := range groups {
		for j, id := range g.ExerciseIDs {
			e, ok := byID[id]
			if !ok || !canRead(sess, e.SpecialistID, e.Visibility, e.CourseID) {
				errs = append(errs, *NewValidationError(fmt.Sprintf("groups[%d].exercise_ids[%d]", i, j), "exercise not found", id))
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *testService) GetByID(ctx context.Context, sess *session.Session, id string) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if !canRead(sess, test.SpecialistID, test.Visibility, test.CourseID) {
		return nil, ErrTestNotFound
	}
	return test, nil
}

// List rejects unknown visibility filters instead of ignoring them
func (s *testService) List(ctx context.Context, sess *session.Session, params models.ListTestsParams) (*models.PaginatedResponse, error) {
	limit, offset, page, size := pageOf(params.Page, params.Size)

	filters := repositories.TestFilters{
		Title:        params.Title,
		CourseID:     params.CourseID,
		SpecialistID: params.SpecialistID,
		Reader:       readerOf(sess),
		Limit:        limit,
		Offset:       offset,
		SortBy:       params.SortBy,
		SortOrder:    params.SortDir,
	}
	if params.Visibility != "" {
		v, err := models.ParseVisibility(params.Visibility)
		if err != nil {
			return nil, ValidationErrors{*NewValidationError("visibility", err.Error(), params.Visibility)}
		}
		filters.Visibility = &v
	}

	tests, total, err := s.repo.Test().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return models.NewPaginatedResponse(tests, len(tests), total, page, size), nil
}

func (s *testService) Delete(ctx context.Context, sess *session.Session, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	test, err := s.GetByID(ctx, sess, id)
	if err != nil {
		return err
	}
	if test.SpecialistID != sess.UserID() {
		return NewPermissionError(sess.UserID(), id, "test", "delete", "not owner")
	}

	if err := s.repo.Test().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to delete test: %w", err)
	}
	s.logger.Info("Test deleted", "test_id", id)
	return nil
}
