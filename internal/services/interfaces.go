package services

import (
	"context"
	"io"

	"github.com/chalk-edu/chalk/internal/draft"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/session"
)

// Every operation receives the caller's session explicitly. A nil or
// anonymous session is allowed where public data is read.

type ExerciseService interface {
	Create(ctx context.Context, sess *session.Session, req *models.ExerciseCreateRequest) (*models.ExerciseView, error)
	GetByID(ctx context.Context, sess *session.Session, id string) (*models.ExerciseView, error)
	List(ctx context.Context, sess *session.Session, params models.ListExercisesParams) (*models.PaginatedResponse, error)
	Delete(ctx context.Context, sess *session.Session, id string) error

	// Fetch returns the stored exercise after the read check
	Fetch(ctx context.Context, sess *session.Session, id string) (*models.Exercise, error)
}

type TestService interface {
	Create(ctx context.Context, sess *session.Session, req *models.TestCreateRequest) (*models.Test, error)
	GetByID(ctx context.Context, sess *session.Session, id string) (*models.Test, error)
	List(ctx context.Context, sess *session.Session, params models.ListTestsParams) (*models.PaginatedResponse, error)
	Delete(ctx context.Context, sess *session.Session, id string) error
}

type DraftService interface {
	Create(ctx context.Context, sess *session.Session, req *models.DraftCreateRequest) (*draft.View, error)
	Get(ctx context.Context, sess *session.Session, id string) (*draft.View, error)
	List(ctx context.Context, sess *session.Session) ([]draft.View, error)
	Dispatch(ctx context.Context, sess *session.Session, id string, req draft.Request) (*draft.View, error)
	Discard(ctx context.Context, sess *session.Session, id string) error
	// Submit persists the draft as a test and discards it
	Submit(ctx context.Context, sess *session.Session, id string, req *models.DraftSubmitRequest) (*models.Test, error)
}

type CourseService interface {
	Create(ctx context.Context, sess *session.Session, req *models.CourseCreateRequest) (*models.Course, error)
	GetByID(ctx context.Context, sess *session.Session, id string) (*models.Course, error)
	ListMine(ctx context.Context, sess *session.Session) ([]*models.Course, error)
	AddMember(ctx context.Context, sess *session.Session, courseID string, req *models.CourseMemberRequest) error
	RemoveMember(ctx context.Context, sess *session.Session, courseID, userID string) error
}

type ResolutionService interface {
	Create(ctx context.Context, sess *session.Session, req *models.ResolutionCreateRequest) (*models.TestResolution, error)
	ListByTest(ctx context.Context, sess *session.Session, testID string, page, size int) (*models.PaginatedResponse, error)
	Count(ctx context.Context, sess *session.Session, testID, studentID string) (*models.ResolutionCount, error)
	Last(ctx context.Context, sess *session.Session, testID, studentID string) (*models.TestResolution, error)
}

type ImportExportService interface {
	ExportRubric(ctx context.Context, rubric *models.Rubric) ([]byte, error)
	ImportRubric(ctx context.Context, r io.Reader) (*models.Rubric, error)
	// ImportExercises creates one exercise per row of the Exercises sheet.
	// Nothing is stored when any row is invalid.
	ImportExercises(ctx context.Context, sess *session.Session, r io.Reader) ([]*models.Exercise, error)
}

type SessionService interface {
	// FromClaims builds the request session from verified token claims
	FromClaims(ctx context.Context, userID string, role models.UserRole, sessionID string) (*session.Session, error)
	// Current enriches sess with the profile and preferences held by the
	// auth service
	Current(ctx context.Context, sess *session.Session, token string) (*session.Session, error)
}

type ServiceManager interface {
	Exercise() ExerciseService
	Test() TestService
	Draft() DraftService
	Course() CourseService
	Resolution() ResolutionService
	ImportExport() ImportExportService
	Session() SessionService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
