package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/chalk-edu/chalk/internal/draft"
	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/validator"
)

type draftService struct {
	store     *draft.Store
	exercises ExerciseService
	tests     TestService
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewDraftService(store *draft.Store, exercises ExerciseService, tests TestService, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) DraftService {
	return &draftService{
		store:     store,
		exercises: exercises,
		tests:     tests,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *draftService) Create(ctx context.Context, sess *session.Session, req *models.DraftCreateRequest) (*draft.View, error) {
	if err := requireRole(sess, "draft", "create", models.RoleSpecialist); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	d := s.store.Create(sess.UserID(), strings.TrimSpace(req.Title))
	s.logger.Info("Draft created", "draft_id", d.ID, "owner_id", d.OwnerID)

	view := d.View()
	return &view, nil
}

func (s *draftService) Get(ctx context.Context, sess *session.Session, id string) (*draft.View, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	d, err := s.store.Get(id, sess.UserID())
	if err != nil {
		return nil, s.translate(sess, id, err)
	}
	view := d.View()
	return &view, nil
}

func (s *draftService) List(ctx context.Context, sess *session.Session) ([]draft.View, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	drafts := s.store.ListByOwner(sess.UserID())
	views := make([]draft.View, len(drafts))
	for i, d := range drafts {
		views[i] = d.View()
	}
	return views, nil
}

// Dispatch applies one action. ADD_EXERCISE fetches the exercise first so the
// draft only ever holds exercises the author may read.
func (s *draftService) Dispatch(ctx context.Context, sess *session.Session, id string, req draft.Request) (*draft.View, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	var exercise *models.Exercise
	if req.NormalizedType() == draft.KindAddExercise {
		if req.ExerciseID == "" {
			return nil, ValidationErrors{*NewValidationError("exercise_id", "is required", nil)}
		}
		e, err := s.exercises.Fetch(ctx, sess, req.ExerciseID)
		if err != nil {
			return nil, err
		}
		exercise = e
	}

	d, err := s.store.ApplyRequest(id, sess.UserID(), req, exercise)
	if err != nil {
		return nil, s.translate(sess, id, err)
	}

	s.logger.Debug("Draft action applied", "draft_id", id, "type", req.NormalizedType())
	view := d.View()
	return &view, nil
}

func (s *draftService) Discard(ctx context.Context, sess *session.Session, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if err := s.store.Delete(id, sess.UserID()); err != nil {
		return s.translate(sess, id, err)
	}
	s.logger.Info("Draft discarded", "draft_id", id)
	return nil
}

func (s *draftService) Submit(ctx context.Context, sess *session.Session, id string, req *models.DraftSubmitRequest) (*models.Test, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	d, err := s.store.Get(id, sess.UserID())
	if err != nil {
		return nil, s.translate(sess, id, err)
	}

	test, err := s.tests.Create(ctx, sess, &models.TestCreateRequest{
		Title:       d.Title,
		CourseID:    req.CourseID,
		Visibility:  req.Visibility,
		Groups:      d.TestGroups(),
		PublishDate: req.PublishDate,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(id, sess.UserID()); err != nil && !errors.Is(err, draft.ErrDraftNotFound) {
		s.logger.Warn("Failed to discard submitted draft", "draft_id", id, "error", err)
	}

	publishOrLog(ctx, s.publisher, s.logger, events.NewEvent(events.DraftSubmitted, id, events.TestPayload{
		TestID:       test.ID,
		SpecialistID: test.SpecialistID,
		DraftID:      id,
		Exercises:    len(test.ExerciseIDs()),
	}))
	s.logger.Info("Draft submitted", "draft_id", id, "test_id", test.ID)
	return test, nil
}

// translate maps store and dispatcher errors onto service errors
func (s *draftService) translate(sess *session.Session, id string, err error) error {
	switch {
	case errors.Is(err, draft.ErrDraftNotFound):
		return ErrDraftNotFound
	case errors.Is(err, draft.ErrNotOwner):
		return NewPermissionError(sess.UserID(), id, "draft", "modify", "not owner")
	case errors.Is(err, draft.ErrInvalidPosition),
		errors.Is(err, draft.ErrUnknownAction),
		errors.Is(err, draft.ErrInvalidExercise),
		errors.Is(err, draft.ErrLastGroup):
		return invalid(err)
	default:
		return err
	}
}
