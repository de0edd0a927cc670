package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/chalk-edu/chalk/internal/models"
)

// ErrDuplicateEmail is returned when registering an email that is taken
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository is the auth service's user store
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Ping(ctx context.Context) error
}

// SessionRepository stores issued login sessions
type SessionRepository interface {
	Create(ctx context.Context, session *models.AuthSession) error
	GetByID(ctx context.Context, id string) (*models.AuthSession, error)
	Delete(ctx context.Context, id string) error
}
