package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/chalk-edu/chalk/internal/cache"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
)

type ResolutionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewResolutionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ResolutionRepository {
	return &ResolutionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ResolutionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, resolution *models.TestResolution) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(resolution).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("submission %d of test %s by %s: %w",
				resolution.SubmissionNr, resolution.TestID, resolution.StudentID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create resolution: %w", err)
	}
	return nil
}

func (r *ResolutionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TestResolution, error) {
	db := r.getDB(tx)
	var resolution models.TestResolution
	if err := db.WithContext(ctx).First(&resolution, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resolution %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get resolution: %w", err)
	}
	return &resolution, nil
}

func (r *ResolutionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, resolution *models.TestResolution) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(resolution).Error; err != nil {
		return fmt.Errorf("failed to update resolution: %w", err)
	}

	r.InvalidateStats(ctx, resolution.TestID, resolution.StudentID)
	return nil
}

func (r *ResolutionPostgreSQL) ListByTest(ctx context.Context, tx *gorm.DB, testID string, filters repositories.ResolutionFilters) ([]*models.TestResolution, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.TestResolution{}).Where("test_id = ?", testID)
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count resolutions: %w", err)
	}

	query = r.helpers.ApplyPaginationAndSort(query, "submission_nr", "desc", filters.Limit, filters.Offset)

	var resolutions []*models.TestResolution
	if err := query.Find(&resolutions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list resolutions: %w", err)
	}
	return resolutions, total, nil
}

// CountByStudent is cached in the stats namespace until the next submission
func (r *ResolutionPostgreSQL) CountByStudent(ctx context.Context, tx *gorm.DB, testID, studentID string) (int64, error) {
	db := r.getDB(tx)
	var count int64

	key := studentCountKey(testID, studentID)
	err := r.cacheManager.Stats.CacheOrExecute(ctx, key, &count, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var n int64
		if err := db.WithContext(ctx).Model(&models.TestResolution{}).
			Where("test_id = ? AND student_id = ?", testID, studentID).
			Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count student resolutions: %w", err)
		}
		return n, nil
	})
	return count, err
}

// NextSubmissionNr is one past the highest stored submission number. The
// unique index on (test_id, student_id, submission_nr) rejects a concurrent
// insert that read the same value.
func (r *ResolutionPostgreSQL) NextSubmissionNr(ctx context.Context, tx *gorm.DB, testID, studentID string) (int, error) {
	var next int
	if err := r.nextSubmissionQuery(ctx, r.getDB(tx), testID, studentID).Scan(&next).Error; err != nil {
		return 0, fmt.Errorf("failed to read last submission number: %w", err)
	}
	return next, nil
}

func (r *ResolutionPostgreSQL) nextSubmissionQuery(ctx context.Context, db *gorm.DB, testID, studentID string) *gorm.DB {
	return db.WithContext(ctx).Model(&models.TestResolution{}).
		Select("COALESCE(MAX(submission_nr), 0) + 1").
		Where("test_id = ? AND student_id = ?", testID, studentID)
}

func (r *ResolutionPostgreSQL) LastByStudent(ctx context.Context, tx *gorm.DB, testID, studentID string) (*models.TestResolution, error) {
	db := r.getDB(tx)
	var resolution models.TestResolution
	if err := db.WithContext(ctx).
		Where("test_id = ? AND student_id = ?", testID, studentID).
		Order("submission_nr DESC").
		First(&resolution).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no resolution of test %s by %s: %w", testID, studentID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get last resolution: %w", err)
	}
	return &resolution, nil
}

// InvalidateStats is called once the creating transaction has committed
func (r *ResolutionPostgreSQL) InvalidateStats(ctx context.Context, testID, studentID string) {
	cache.SafeDelete(ctx, r.cacheManager.Stats, studentCountKey(testID, studentID))
}

func studentCountKey(testID, studentID string) string {
	return fmt.Sprintf("test:%s:student:%s:count", testID, studentID)
}

func (r *ResolutionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
