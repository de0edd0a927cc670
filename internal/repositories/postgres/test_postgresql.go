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

type TestPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewTestPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.TestRepository {
	return &TestPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *TestPostgreSQL) Create(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(test).Error; err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Test, "list:*")
	return nil
}

func (r *TestPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Test, error) {
	db := r.getDB(tx)
	var test models.Test

	err := r.cacheManager.Test.CacheOrExecute(ctx, "id:"+id, &test, cache.TestCacheConfig.TTL, func() (interface{}, error) {
		var dbTest models.Test
		if err := db.WithContext(ctx).First(&dbTest, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("test %s: %w", id, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get test: %w", err)
		}
		return &dbTest, nil
	})
	if err != nil {
		return nil, err
	}

	return &test, nil
}

func (r *TestPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Test{})

	query = r.helpers.ApplyReader(query, filters.Reader)
	query = r.helpers.ApplyTitleSearch(query, filters.Title, "title")
	if filters.Visibility != nil {
		query = query.Where("visibility = ?", *filters.Visibility)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.SpecialistID != nil {
		query = query.Where("specialist_id = ?", *filters.SpecialistID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tests: %w", err)
	}

	sortBy := filters.SortBy
	if sortBy == "" || sortBy == "created_at" {
		sortBy = "creation_date"
	}
	query = r.helpers.ApplyPaginationAndSort(query, sortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var tests []*models.Test
	if err := query.Find(&tests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tests: %w", err)
	}

	return tests, total, nil
}

// Delete removes the test together with its resolutions
func (r *TestPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.getDB(tx)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&models.TestResolution{}).Error; err != nil {
			return fmt.Errorf("failed to delete test resolutions: %w", err)
		}
		result := tx.Delete(&models.Test{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete test: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("test %s: %w", id, repositories.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateTestCache(ctx, r.cacheManager, id)
	return nil
}

func (r *TestPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
