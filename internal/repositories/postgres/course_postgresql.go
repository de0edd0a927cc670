package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chalk-edu/chalk/internal/cache"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create inserts the course and its initial members
func (r *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Course, "user:*")
	return nil
}

func (r *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	db := r.getDB(tx)
	var course models.Course
	if err := db.WithContext(ctx).Preload("Members").First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("course %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

// ListByMember returns the courses userID belongs to, cached per user
func (r *CoursePostgreSQL) ListByMember(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Course, error) {
	db := r.getDB(tx)
	var courses []*models.Course

	err := r.cacheManager.Course.CacheOrExecute(ctx, "user:"+userID, &courses, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var dbCourses []*models.Course
		if err := db.WithContext(ctx).
			Joins("JOIN course_members cm ON cm.course_id = courses.id").
			Where("cm.user_id = ?", userID).
			Order("courses.name ASC").
			Find(&dbCourses).Error; err != nil {
			return nil, fmt.Errorf("failed to list courses for member: %w", err)
		}
		return dbCourses, nil
	})
	if err != nil {
		return nil, err
	}
	return courses, nil
}

// AddMember is idempotent: re-adding updates the member's role
func (r *CoursePostgreSQL) AddMember(ctx context.Context, tx *gorm.DB, member *models.CourseMember) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(member).Error; err != nil {
		return fmt.Errorf("failed to add course member: %w", err)
	}

	cache.InvalidateCourseCache(ctx, r.cacheManager, member.CourseID)
	return nil
}

func (r *CoursePostgreSQL) RemoveMember(ctx context.Context, tx *gorm.DB, courseID, userID string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Delete(&models.CourseMember{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove course member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("member %s of course %s: %w", userID, courseID, repositories.ErrNotFound)
	}

	cache.InvalidateCourseCache(ctx, r.cacheManager, courseID)
	return nil
}

func (r *CoursePostgreSQL) IsMember(ctx context.Context, tx *gorm.DB, courseID, userID string) (bool, error) {
	db := r.getDB(tx)
	var member bool

	key := fmt.Sprintf("member:%s:%s", courseID, userID)
	err := r.cacheManager.Course.CacheOrExecute(ctx, key, &member, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var count int64
		if err := db.WithContext(ctx).Model(&models.CourseMember{}).
			Where("course_id = ? AND user_id = ?", courseID, userID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check course membership: %w", err)
		}
		return count > 0, nil
	})
	return member, err
}

func (r *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
