package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is wrapped by every repository when a record does not exist
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is wrapped when an insert hits a unique index
var ErrDuplicate = errors.New("duplicate record")

// IsNotFoundError reports whether err means the record does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique index violation
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}

// Repository aggregates the relational repositories of the API
type Repository interface {
	Exercise() ExerciseRepository
	Test() TestRepository
	Course() CourseRepository
	Resolution() ResolutionRepository

	// WithTransaction runs fn with repositories bound to one transaction
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns the repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
