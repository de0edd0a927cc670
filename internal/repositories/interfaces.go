package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/chalk-edu/chalk/internal/models"
)

// ===== FILTERS =====

// Reader restricts listings to what a user may see. A nil Reader lists
// everything.
type Reader struct {
	UserID    string
	CourseIDs []string
}

type ExerciseFilters struct {
	Search       string               `json:"search"`
	Type         *models.ExerciseType `json:"type"`
	Visibility   *models.Visibility   `json:"visibility"`
	CourseID     *string              `json:"course_id"`
	SpecialistID *string              `json:"specialist_id"`
	Tags         []string             `json:"tags"`
	Reader       *Reader              `json:"-"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
	SortBy       string               `json:"sort_by"`    // "created_at", "title", "type"
	SortOrder    string               `json:"sort_order"` // "asc", "desc"
}

type TestFilters struct {
	Title        string             `json:"title"`
	Visibility   *models.Visibility `json:"visibility"`
	CourseID     *string            `json:"course_id"`
	SpecialistID *string            `json:"specialist_id"`
	Reader       *Reader            `json:"-"`
	Limit        int                `json:"limit"`
	Offset       int                `json:"offset"`
	SortBy       string             `json:"sort_by"`
	SortOrder    string             `json:"sort_order"`
}

type ResolutionFilters struct {
	StudentID *string                  `json:"student_id"`
	Status    *models.ResolutionStatus `json:"status"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
}

// ===== REPOSITORIES =====

type ExerciseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exercise *models.Exercise) error
	CreateBatch(ctx context.Context, tx *gorm.DB, exercises []*models.Exercise) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Exercise, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Exercise, error)
	List(ctx context.Context, tx *gorm.DB, filters ExerciseFilters) ([]*models.Exercise, int64, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

type TestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, test *models.Test) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Test, error)
	List(ctx context.Context, tx *gorm.DB, filters TestFilters) ([]*models.Test, int64, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error)
	ListByMember(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Course, error)
	AddMember(ctx context.Context, tx *gorm.DB, member *models.CourseMember) error
	RemoveMember(ctx context.Context, tx *gorm.DB, courseID, userID string) error
	IsMember(ctx context.Context, tx *gorm.DB, courseID, userID string) (bool, error)
}

type ResolutionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, resolution *models.TestResolution) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TestResolution, error)
	Update(ctx context.Context, tx *gorm.DB, resolution *models.TestResolution) error
	ListByTest(ctx context.Context, tx *gorm.DB, testID string, filters ResolutionFilters) ([]*models.TestResolution, int64, error)
	CountByStudent(ctx context.Context, tx *gorm.DB, testID, studentID string) (int64, error)
	// NextSubmissionNr reads the highest submission number from the database, bypassing the cache
	NextSubmissionNr(ctx context.Context, tx *gorm.DB, testID, studentID string) (int, error)
	// InvalidateStats drops the cached counters of one student on one test
	InvalidateStats(ctx context.Context, testID, studentID string)
	// LastByStudent returns the resolution with the highest submission number
	LastByStudent(ctx context.Context, tx *gorm.DB, testID, studentID string) (*models.TestResolution, error)
}
