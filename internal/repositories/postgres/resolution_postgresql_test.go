package postgres

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalk-edu/chalk/internal/cache"
)

func TestResolutionPostgreSQL_NextSubmissionQuery(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewResolutionPostgreSQL(dryRunDB(t), client).(*ResolutionPostgreSQL)
	ctx := context.Background()

	stmt := statementOf(repo.nextSubmissionQuery(ctx, repo.db, "t1", "u1"))
	sql := stmt.SQL.String()

	assert.Contains(t, sql, `SELECT COALESCE(MAX(submission_nr), 0) + 1 FROM "test_resolutions"`)
	assert.Contains(t, sql, "test_id = $1 AND student_id = $2")
	assert.Equal(t, []interface{}{"t1", "u1"}, stmt.Vars)
	assert.NotContains(t, sql, "COUNT")

	// the number is read from the database, never from the stats cache
	assert.Empty(t, mr.Keys())
}

func TestResolutionPostgreSQL_InvalidateStats(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewResolutionPostgreSQL(dryRunDB(t), client).(*ResolutionPostgreSQL)
	ctx := context.Background()

	require.NoError(t, repo.cacheManager.Stats.Set(ctx, studentCountKey("t1", "u1"), int64(2), 0))
	require.NoError(t, repo.cacheManager.Stats.Set(ctx, studentCountKey("t1", "u2"), int64(5), 0))

	repo.InvalidateStats(ctx, "t1", "u1")

	var count int64
	err := repo.cacheManager.Stats.Get(ctx, studentCountKey("t1", "u1"), &count)
	assert.ErrorIs(t, err, cache.ErrCacheNotFound)
	require.NoError(t, repo.cacheManager.Stats.Get(ctx, studentCountKey("t1", "u2"), &count))
	assert.Equal(t, int64(5), count)
}
