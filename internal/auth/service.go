package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chalk-edu/chalk/internal/cache"
	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/validator"
)

// Service owns accounts and login sessions. Every error it returns is a
// *RequestError.
type Service struct {
	users     repositories.UserRepository
	sessions  repositories.SessionRepository
	revoked   *cache.RevocationList
	tokens    *TokenManager
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the auth service. revoked and publisher may be nil.
func NewService(
	users repositories.UserRepository,
	sessions repositories.SessionRepository,
	revoked *cache.RevocationList,
	tokens *TokenManager,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:     users,
		sessions:  sessions,
		revoked:   revoked,
		tokens:    tokens,
		publisher: publisher,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a student account. Other roles are granted by an
// administrator, never through this endpoint.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if req.Role == "" {
		req.Role = models.RoleStudent
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, &RequestError{Status: http.StatusBadRequest, Message: "Validation failed", Err: err}
	}
	if req.Role != models.RoleStudent {
		return nil, &RequestError{
			Status:  http.StatusForbidden,
			Message: "Only student accounts can be self-registered",
			Err:     fmt.Errorf("requested role %s", req.Role),
		}
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.SetPassword(req.Password); err != nil {
		if errors.Is(err, models.ErrWeakPassword) {
			return nil, badRequest("Invalid password", err)
		}
		return nil, internal("Failed to register user", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, &RequestError{Status: http.StatusConflict, Message: "Email already registered"}
		}
		return nil, internal("Failed to register user", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "role", user.Role)
	s.publish(ctx, events.UserRegistered, events.UserPayload{UserID: user.ID, Role: string(user.Role)})
	return user, nil
}

// Login checks the credentials and opens a session. Unknown emails and wrong
// passwords get the same answer.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, &RequestError{Status: http.StatusBadRequest, Message: "Validation failed", Err: err}
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, unauthorized("Invalid email or password")
		}
		return nil, internal("Failed to log in", err)
	}
	if err := user.CheckPassword(req.Password); err != nil {
		return nil, unauthorized("Invalid email or password")
	}

	now := s.now().UTC()
	sess := &models.AuthSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokens.TTL()),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, internal("Failed to open session", err)
	}

	token, expiresAt, err := s.tokens.Issue(user, sess.ID)
	if err != nil {
		return nil, internal("Failed to issue token", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}
	user.LastLogin = &now

	s.logger.Info("User logged in", "user_id", user.ID, "session_id", sess.ID)
	s.publish(ctx, events.UserLoggedIn, events.UserPayload{UserID: user.ID, Role: string(user.Role), SessionID: sess.ID})
	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate verifies raw and requires its session to be open
func (s *Service) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, unauthorized("Missing token")
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, unauthorized("Invalid token")
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.SessionID)
		if err != nil {
			s.logger.Warn("Failed to check revoked sessions", "session_id", claims.SessionID, "error", err)
		}
		if revoked {
			return nil, unauthorized("Session has ended")
		}
	}

	if _, err := s.sessions.GetByID(ctx, claims.SessionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, unauthorized("Session has ended")
		}
		return nil, internal("Failed to load session", err)
	}
	return claims, nil
}

// Logout closes the session and revokes its token for the rest of its life
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil && !repositories.IsNotFoundError(err) {
		return internal("Failed to close session", err)
	}
	if s.revoked != nil {
		if err := s.revoked.Revoke(ctx, claims.SessionID, s.tokens.Remaining(claims)); err != nil {
			s.logger.Error("Failed to revoke session", "session_id", claims.SessionID, "error", err)
		}
	}

	s.logger.Info("User logged out", "user_id", claims.UserID, "session_id", claims.SessionID)
	s.publish(ctx, events.UserLoggedOut, events.UserPayload{UserID: claims.UserID, SessionID: claims.SessionID})
	return nil
}

func (s *Service) Me(ctx context.Context, claims *Claims) (*models.User, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, &RequestError{Status: http.StatusNotFound, Message: "User not found"}
		}
		return nil, internal("Failed to load user", err)
	}
	return user, nil
}

// Preferences returns the stored key/value form, e.g. {"dark-mode": "true"}
func (s *Service) Preferences(ctx context.Context, claims *Claims) (map[string]string, error) {
	user, err := s.Me(ctx, claims)
	if err != nil {
		return nil, err
	}
	return session.PreferenceMap(user.Preferences), nil
}

func (s *Service) UpdatePreferences(ctx context.Context, claims *Claims, req *models.PreferencesUpdateRequest) (map[string]string, error) {
	if req.DarkMode == nil {
		return nil, badRequest("dark_mode is required", nil)
	}
	prefs := models.Preferences{DarkMode: *req.DarkMode}
	if err := s.users.UpdatePreferences(ctx, claims.UserID, prefs); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, &RequestError{Status: http.StatusNotFound, Message: "User not found"}
		}
		return nil, internal("Failed to update preferences", err)
	}
	return session.PreferenceMap(prefs), nil
}

// Ping checks the user store
func (s *Service) Ping(ctx context.Context) error {
	return s.users.Ping(ctx)
}

func (s *Service) publish(ctx context.Context, t events.EventType, payload events.UserPayload) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(t, payload.UserID, payload)); err != nil {
		s.logger.Error("Failed to publish event", "type", t, "error", err)
	}
}
