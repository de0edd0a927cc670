package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/validator"
)

func TestCourseService(t *testing.T) {
	repo := newFakeRepo()
	svc := NewCourseService(repo, testLogger(), validator.New())
	ctx := context.Background()

	_, err := svc.Create(ctx, student("u1"), &models.CourseCreateRequest{Name: "Algebra"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, specialist("s1"), &models.CourseCreateRequest{Name: ""})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	course, err := svc.Create(ctx, specialist("s1"), &models.CourseCreateRequest{Name: " Algebra "})
	require.NoError(t, err)
	assert.Equal(t, "Algebra", course.Name)
	require.Len(t, course.Members, 1)
	assert.Equal(t, models.RoleSpecialist, course.Members[0].Role)

	t.Run("outsiders do not see the course", func(t *testing.T) {
		_, err := svc.GetByID(ctx, student("u1"), course.ID)
		assert.ErrorIs(t, err, ErrCourseNotFound)
	})

	t.Run("creator adds a student", func(t *testing.T) {
		err := svc.AddMember(ctx, specialist("s1"), course.ID, &models.CourseMemberRequest{UserID: "u1", Role: models.RoleStudent})
		require.NoError(t, err)

		mine, err := svc.ListMine(ctx, student("u1"))
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, course.ID, mine[0].ID)
	})

	t.Run("students cannot manage members", func(t *testing.T) {
		err := svc.AddMember(ctx, student("u1"), course.ID, &models.CourseMemberRequest{UserID: "u2", Role: models.RoleStudent})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("invalid role", func(t *testing.T) {
		err := svc.AddMember(ctx, specialist("s1"), course.ID, &models.CourseMemberRequest{UserID: "u2", Role: "ADMIN"})
		var verrs validator.ValidationErrors
		assert.True(t, errors.As(err, &verrs))
	})

	t.Run("creator cannot be removed", func(t *testing.T) {
		err := svc.RemoveMember(ctx, specialist("s1"), course.ID, "s1")
		var verrs validator.ValidationErrors
		assert.True(t, errors.As(err, &verrs))
	})

	t.Run("remove student", func(t *testing.T) {
		require.NoError(t, svc.RemoveMember(ctx, specialist("s1"), course.ID, "u1"))
		mine, err := svc.ListMine(ctx, student("u1"))
		require.NoError(t, err)
		assert.Empty(t, mine)
		assert.ErrorIs(t, svc.RemoveMember(ctx, specialist("s1"), course.ID, "u1"), ErrNotFound)
	})
}
