package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/labels"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/validator"
)

type exerciseService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewExerciseService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ExerciseService {
	return &exerciseService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *exerciseService) Create(ctx context.Context, sess *session.Session, req *models.ExerciseCreateRequest) (*models.ExerciseView, error) {
	if err := requireRole(sess, "exercise", "create", models.RoleSpecialist); err != nil {
		return nil, err
	}

	exercise, err := s.build(sess, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Creating exercise", "specialist_id", exercise.SpecialistID, "type", exercise.Type)

	if err := s.repo.Exercise().Create(ctx, nil, exercise); err != nil {
		return nil, fmt.Errorf("failed to create exercise: %w", err)
	}

	s.publish(ctx, exercise)
	s.logger.Info("Exercise created successfully", "exercise_id", exercise.ID)

	view := labels.View(exercise)
	return &view, nil
}

func (s *exerciseService) build(sess *session.Session, req *models.ExerciseCreateRequest) (*models.Exercise, error) {
	return buildExercise(s.validator, sess, req)
}

// buildExercise validates req and turns it into an exercise owned by sess
func buildExercise(v *validator.Validator, sess *session.Session, req *models.ExerciseCreateRequest) (*models.Exercise, error) {
	if errs := v.GetBusinessValidator().ValidateExerciseCreate(req); len(errs) > 0 {
		return nil, errs
	}
	if req.CourseID != nil && !sess.InCourse(*req.CourseID) {
		return nil, NewPermissionError(sess.UserID(), *req.CourseID, "course", "publish to", "not a member of the course")
	}

	content := datatypes.JSON(req.Content)
	if len(content) == 0 {
		content = datatypes.JSON("{}")
	}

	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		tags = append(tags, strings.TrimSpace(tag))
	}
	tagBytes, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	exercise := &models.Exercise{
		ID:            uuid.NewString(),
		Visibility:    req.Visibility,
		Type:          req.Type,
		Title:         strings.TrimSpace(req.Title),
		Statement:     req.Statement,
		Content:       content,
		Tags:          datatypes.JSON(tagBytes),
		SpecialistID:  sess.UserID(),
		CourseID:      req.CourseID,
		InstitutionID: req.InstitutionID,
	}

	if req.Rubric != nil {
		raw, err := models.MarshalRubric(req.Rubric)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal rubric: %w", err)
		}
		exercise.Rubric = datatypes.JSON(raw)
	}
	return exercise, nil
}

func (s *exerciseService) GetByID(ctx context.Context, sess *session.Session, id string) (*models.ExerciseView, error) {
	exercise, err := s.Fetch(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	view := labels.View(exercise)
	return &view, nil
}

func (s *exerciseService) Fetch(ctx context.Context, sess *session.Session, id string) (*models.Exercise, error) {
	exercise, err := s.repo.Exercise().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}

	if !canRead(sess, exercise.SpecialistID, exercise.Visibility, exercise.CourseID) {
		// private exercises are not revealed to exist
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

func (s *exerciseService) List(ctx context.Context, sess *session.Session, params models.ListExercisesParams) (*models.PaginatedResponse, error) {
	limit, offset, page, size := pageOf(params.Page, params.Size)

	filters := repositories.ExerciseFilters{
		Search:       params.Search,
		CourseID:     params.CourseID,
		SpecialistID: params.SpecialistID,
		Tags:         params.Tags,
		Reader:       readerOf(sess),
		Limit:        limit,
		Offset:       offset,
		SortBy:       params.SortBy,
		SortOrder:    params.SortDir,
	}
	if params.Type != "" {
		t, err := models.ParseExerciseType(string(params.Type))
		if err != nil {
			return nil, ValidationErrors{*NewValidationError("type", err.Error(), params.Type)}
		}
		filters.Type = &t
	}
	if params.Visibility != "" {
		v, err := models.ParseVisibility(string(params.Visibility))
		if err != nil {
			return nil, ValidationErrors{*NewValidationError("visibility", err.Error(), params.Visibility)}
		}
		filters.Visibility = &v
	}

	exercises, total, err := s.repo.Exercise().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}

	views := make([]models.ExerciseView, len(exercises))
	for i, e := range exercises {
		views[i] = labels.View(e)
	}
	return models.NewPaginatedResponse(views, len(views), total, page, size), nil
}

func (s *exerciseService) Delete(ctx context.Context, sess *session.Session, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}

	exercise, err := s.Fetch(ctx, sess, id)
	if err != nil {
		return err
	}
	if exercise.SpecialistID != sess.UserID() {
		return NewPermissionError(sess.UserID(), id, "exercise", "delete", "not owner")
	}

	if err := s.repo.Exercise().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExerciseNotFound
		}
		return fmt.Errorf("failed to delete exercise: %w", err)
	}

	publishOrLog(ctx, s.publisher, s.logger, exerciseEvent(events.ExerciseDeleted, exercise))
	s.logger.Info("Exercise deleted", "exercise_id", id)
	return nil
}

func (s *exerciseService) publish(ctx context.Context, e *models.Exercise) {
	publishOrLog(ctx, s.publisher, s.logger, exerciseEvent(events.ExerciseCreated, e))
}

func exerciseEvent(t events.EventType, e *models.Exercise) *events.Event {
	return events.NewEvent(t, e.ID, events.ExercisePayload{
		ExerciseID:   e.ID,
		SpecialistID: e.SpecialistID,
		Type:         string(e.Type),
		Visibility:   string(e.Visibility),
	})
}

// publishOrLog publishes event; a failure is logged and never fails the
// operation that produced it
func publishOrLog(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, event *events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish event", "type", event.Type, "subject", event.Subject, "error", err)
	}
}
