package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and logs instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateExerciseCache drops the exercise entry and every cached listing
func InvalidateExerciseCache(ctx context.Context, cm *CacheManager, exerciseID string) {
	SafeDelete(ctx, cm.Exercise, "id:"+exerciseID)
	SafeInvalidatePattern(ctx, cm.Exercise, "list:*")
}

// InvalidateTestCache drops the test entry, listings and its resolution stats
func InvalidateTestCache(ctx context.Context, cm *CacheManager, testID string) {
	SafeDelete(ctx, cm.Test, "id:"+testID)
	SafeInvalidatePattern(ctx, cm.Test, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, "test:"+testID+":*")
}

// InvalidateCourseCache drops the course entry and all membership lookups
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID string) {
	SafeDelete(ctx, cm.Course, "id:"+courseID)
	SafeInvalidatePattern(ctx, cm.Course, "member:"+courseID+":*")
	SafeInvalidatePattern(ctx, cm.Course, "user:*")
}
