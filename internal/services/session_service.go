package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chalk-edu/chalk/internal/gateway"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/session"
)

type sessionService struct {
	repo   repositories.Repository
	auth   *gateway.Client
	logger *slog.Logger
}

// NewSessionService builds sessions from token claims. auth may be nil, in
// which case Current returns the session unchanged.
func NewSessionService(repo repositories.Repository, auth *gateway.Client, logger *slog.Logger) SessionService {
	return &sessionService{
		repo:   repo,
		auth:   auth,
		logger: logger,
	}
}

func (s *sessionService) FromClaims(ctx context.Context, userID string, role models.UserRole, sessionID string) (*session.Session, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	courses, err := s.repo.Course().ListByMember(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load courses: %w", err)
	}
	refs := make([]models.CourseRef, 0, len(courses))
	for _, c := range courses {
		refs = append(refs, c.Ref())
	}

	sess := session.New(&models.User{ID: userID, Role: role}, refs)
	sess.ID = sessionID
	return sess, nil
}

// Current asks the auth service for the profile and preferences behind
// token and merges them into sess
func (s *sessionService) Current(ctx context.Context, sess *session.Session, token string) (*session.Session, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if s.auth == nil {
		return sess, nil
	}

	client := s.auth.WithToken(token)
	user, err := client.Me(ctx)
	if err != nil {
		return nil, s.authError("profile", err)
	}
	prefs, err := client.Preferences(ctx)
	if err != nil {
		return nil, s.authError("preferences", err)
	}

	current := session.New(user, sess.Courses)
	current.Preferences = session.PreferencesFromMap(prefs)
	current.ID = sess.ID
	return current, nil
}

func (s *sessionService) authError(what string, err error) error {
	var status *gateway.StatusError
	if errors.As(err, &status) && status.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	s.logger.Error("Auth service request failed", "resource", what, "error", err)
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}
