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

type ExercisePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewExercisePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExerciseRepository {
	return &ExercisePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ExercisePostgreSQL) Create(ctx context.Context, tx *gorm.DB, exercise *models.Exercise) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(exercise).Error; err != nil {
		return fmt.Errorf("failed to create exercise: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Exercise, "list:*")
	return nil
}

func (r *ExercisePostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, exercises []*models.Exercise) error {
	if len(exercises) == 0 {
		return nil
	}

	db := r.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(exercises, 100).Error; err != nil {
		return fmt.Errorf("failed to create exercises batch: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Exercise, "list:*")
	return nil
}

// GetByID reads through the exercise cache
func (r *ExercisePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Exercise, error) {
	db := r.getDB(tx)
	var exercise models.Exercise

	err := r.cacheManager.Exercise.CacheOrExecute(ctx, "id:"+id, &exercise, cache.ExerciseCacheConfig.TTL, func() (interface{}, error) {
		var dbExercise models.Exercise
		if err := db.WithContext(ctx).First(&dbExercise, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("exercise %s: %w", id, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get exercise: %w", err)
		}
		return &dbExercise, nil
	})
	if err != nil {
		return nil, err
	}

	return &exercise, nil
}

// GetByIDs returns the exercises found, in no particular order
func (r *ExercisePostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Exercise, error) {
	if len(ids) == 0 {
		return []*models.Exercise{}, nil
	}

	db := r.getDB(tx)
	var exercises []*models.Exercise
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&exercises).Error; err != nil {
		return nil, fmt.Errorf("failed to get exercises by IDs: %w", err)
	}
	return exercises, nil
}

func (r *ExercisePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ExerciseFilters) ([]*models.Exercise, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Exercise{})
	query = r.applyExerciseFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exercises: %w", err)
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var exercises []*models.Exercise
	if err := query.Find(&exercises).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exercises: %w", err)
	}

	return exercises, total, nil
}

func (r *ExercisePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.Exercise{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete exercise: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("exercise %s: %w", id, repositories.ErrNotFound)
	}

	cache.InvalidateExerciseCache(ctx, r.cacheManager, id)
	return nil
}

func (r *ExercisePostgreSQL) applyExerciseFilters(query *gorm.DB, filters repositories.ExerciseFilters) *gorm.DB {
	query = r.helpers.ApplyReader(query, filters.Reader)
	query = r.helpers.ApplyTitleSearch(query, filters.Search, "title", "statement")
	query = r.helpers.ApplyTags(query, filters.Tags)

	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Visibility != nil {
		query = query.Where("visibility = ?", *filters.Visibility)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.SpecialistID != nil {
		query = query.Where("specialist_id = ?", *filters.SpecialistID)
	}
	return query
}

func (r *ExercisePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
