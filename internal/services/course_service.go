package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/validator"
)

type courseService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCourseService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) CourseService {
	return &courseService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// Create stores the course with its creator as the first member
func (s *courseService) Create(ctx context.Context, sess *session.Session, req *models.CourseCreateRequest) (*models.Course, error) {
	if err := requireRole(sess, "course", "create", models.RoleSpecialist, models.RoleInstitutionManager); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	course := &models.Course{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		InstitutionID: req.InstitutionID,
		CreatedBy:     sess.UserID(),
	}
	course.Members = []models.CourseMember{{
		CourseID: course.ID,
		UserID:   sess.UserID(),
		Role:     sess.User.Role,
	}}

	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	s.logger.Info("Course created", "course_id", course.ID, "created_by", course.CreatedBy)
	return course, nil
}

func (s *courseService) GetByID(ctx context.Context, sess *session.Session, id string) (*models.Course, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course.CreatedBy != sess.UserID() && !isMember(course, sess.UserID()) {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (s *courseService) ListMine(ctx context.Context, sess *session.Session) ([]*models.Course, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	courses, err := s.repo.Course().ListByMember(ctx, nil, sess.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	return courses, nil
}

func (s *courseService) AddMember(ctx context.Context, sess *session.Session, courseID string, req *models.CourseMemberRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if _, err := s.manageable(ctx, sess, courseID, "add member to"); err != nil {
		return err
	}

	member := &models.CourseMember{CourseID: courseID, UserID: req.UserID, Role: req.Role}
	if err := s.repo.Course().AddMember(ctx, nil, member); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	s.logger.Info("Course member added", "course_id", courseID, "user_id", req.UserID, "role", req.Role)
	return nil
}

func (s *courseService) RemoveMember(ctx context.Context, sess *session.Session, courseID, userID string) error {
	course, err := s.manageable(ctx, sess, courseID, "remove member from")
	if err != nil {
		return err
	}
	if userID == course.CreatedBy {
		return ValidationErrors{*NewValidationError("user_id", "the course creator cannot be removed", userID)}
	}

	if err := s.repo.Course().RemoveMember(ctx, nil, courseID, userID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}
	s.logger.Info("Course member removed", "course_id", courseID, "user_id", userID)
	return nil
}

// manageable loads the course and requires the caller to be its creator or
// one of its specialists
func (s *courseService) manageable(ctx context.Context, sess *session.Session, courseID, action string) (*models.Course, error) {
	course, err := s.GetByID(ctx, sess, courseID)
	if err != nil {
		return nil, err
	}
	if course.CreatedBy == sess.UserID() {
		return course, nil
	}
	for _, m := range course.Members {
		if m.UserID == sess.UserID() && m.Role == models.RoleSpecialist {
			return course, nil
		}
	}
	return nil, NewPermissionError(sess.UserID(), courseID, "course", action, "only the course specialists can manage members")
}

func isMember(course *models.Course, userID string) bool {
	for _, m := range course.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
