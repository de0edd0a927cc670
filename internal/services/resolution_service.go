package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/validator"
)

const submissionAttempts = 3

type resolutionService struct {
	repo      repositories.Repository
	tests     TestService
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	now       func() time.Time
}

func NewResolutionService(repo repositories.Repository, tests TestService, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ResolutionService {
	return &resolutionService{
		repo:      repo,
		tests:     tests,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create records a new attempt. Its submission number is one more than the
// highest number the student already holds on the same test.
func (s *resolutionService) Create(ctx context.Context, sess *session.Session, req *models.ResolutionCreateRequest) (*models.TestResolution, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.tests.GetByID(ctx, sess, req.TestID)
	if err != nil {
		return nil, err
	}
	if errs := s.validator.GetBusinessValidator().ValidateResolution(req, len(test.Groups)); len(errs) > 0 {
		return nil, errs
	}

	now := s.now().UTC()
	resolution := &models.TestResolution{
		ID:        uuid.NewString(),
		TestID:    test.ID,
		StudentID: sess.UserID(),
		StartDate: req.StartDate,
		Status:    models.ResolutionOngoing,
		Groups:    req.Groups,
	}
	if resolution.StartDate == nil {
		resolution.StartDate = &now
	}
	if req.Submit {
		resolution.Status = models.ResolutionSubmitted
		resolution.SubmissionDate = &now
	}
	resolution.UpdateSum()

	if err := s.insertNumbered(ctx, resolution); err != nil {
		return nil, err
	}
	s.repo.Resolution().InvalidateStats(ctx, resolution.TestID, resolution.StudentID)

	if resolution.Status == models.ResolutionSubmitted {
		publishOrLog(ctx, s.publisher, s.logger, events.NewEvent(events.ResolutionSubmitted, resolution.ID, events.ResolutionPayload{
			ResolutionID: resolution.ID,
			TestID:       resolution.TestID,
			StudentID:    resolution.StudentID,
			SubmissionNr: resolution.SubmissionNr,
			TotalPoints:  resolution.TotalPoints,
		}))
	}
	s.logger.Info("Resolution created", "resolution_id", resolution.ID, "test_id", test.ID, "submission_nr", resolution.SubmissionNr)
	return resolution, nil
}

// insertNumbered stores the resolution under the next free submission number.
// A concurrent submission that took the same number makes the insert fail on
// the unique index; the whole transaction is then retried.
func (s *resolutionService) insertNumbered(ctx context.Context, resolution *models.TestResolution) error {
	var err error
	for attempt := 1; attempt <= submissionAttempts; attempt++ {
		err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			next, err := tx.Resolution().NextSubmissionNr(ctx, nil, resolution.TestID, resolution.StudentID)
			if err != nil {
				return err
			}
			resolution.SubmissionNr = next
			return tx.Resolution().Create(ctx, nil, resolution)
		})
		if !repositories.IsDuplicateError(err) {
			break
		}
		s.logger.Warn("Submission number taken, retrying", "test_id", resolution.TestID, "attempt", attempt)
	}

	switch {
	case err == nil:
		return nil
	case repositories.IsDuplicateError(err):
		return fmt.Errorf("%w: concurrent submissions to test %s", ErrConflict, resolution.TestID)
	default:
		return fmt.Errorf("failed to create resolution: %w", err)
	}
}

// ListByTest shows every attempt to the test owner and only their own to
// anybody else
func (s *resolutionService) ListByTest(ctx context.Context, sess *session.Session, testID string, page, size int) (*models.PaginatedResponse, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	test, err := s.tests.GetByID(ctx, sess, testID)
	if err != nil {
		return nil, err
	}

	limit, offset, page, size := pageOf(page, size)
	filters := repositories.ResolutionFilters{Limit: limit, Offset: offset}
	if test.SpecialistID != sess.UserID() {
		uid := sess.UserID()
		filters.StudentID = &uid
	}

	resolutions, total, err := s.repo.Resolution().ListByTest(ctx, nil, testID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	return models.NewPaginatedResponse(resolutions, len(resolutions), total, page, size), nil
}

func (s *resolutionService) Count(ctx context.Context, sess *session.Session, testID, studentID string) (*models.ResolutionCount, error) {
	if err := s.checkStudentAccess(ctx, sess, testID, studentID); err != nil {
		return nil, err
	}
	count, err := s.repo.Resolution().CountByStudent(ctx, nil, testID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count resolutions: %w", err)
	}
	return &models.ResolutionCount{TestID: testID, StudentID: studentID, Count: count}, nil
}

// Last returns the attempt with the highest submission number
func (s *resolutionService) Last(ctx context.Context, sess *session.Session, testID, studentID string) (*models.TestResolution, error) {
	if err := s.checkStudentAccess(ctx, sess, testID, studentID); err != nil {
		return nil, err
	}
	resolution, err := s.repo.Resolution().LastByStudent(ctx, nil, testID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResolutionNotFound
		}
		return nil, fmt.Errorf("failed to get last resolution: %w", err)
	}
	return resolution, nil
}

// checkStudentAccess lets students read their own attempts and test owners
// read everybody's
func (s *resolutionService) checkStudentAccess(ctx context.Context, sess *session.Session, testID, studentID string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	test, err := s.tests.GetByID(ctx, sess, testID)
	if err != nil {
		return err
	}
	if studentID != sess.UserID() && test.SpecialistID != sess.UserID() {
		return NewPermissionError(sess.UserID(), testID, "resolution", "read", "not the student nor the test owner")
	}
	return nil
}
