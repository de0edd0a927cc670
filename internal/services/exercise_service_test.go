package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/validator"
)

const courseA = "0b6f3a1c-5a1e-4c7a-9e4b-2f1d7c9a0e11"

func newExerciseFixture() (*fakeRepo, *events.MockEventPublisher, ExerciseService) {
	repo := newFakeRepo()
	pub := events.NewMockEventPublisher(testLogger())
	return repo, pub, NewExerciseService(repo, testLogger(), validator.New(), pub)
}

func TestExerciseService_Create(t *testing.T) {
	valid := func() *models.ExerciseCreateRequest {
		return &models.ExerciseCreateRequest{
			Title:      "  Fractions  ",
			Statement:  "Add 1/2 and 1/3",
			Type:       models.TypeMultipleChoice,
			Visibility: models.VisibilityPublic,
			Content:    json.RawMessage(`{"items":[{"text":"5/6","correct":true},{"text":"2/5"}]}`),
			Tags:       []string{" math ", "fractions"},
		}
	}

	tests := []struct {
		name    string
		sess    *session.Session
		mutate  func(*models.ExerciseCreateRequest)
		wantErr error
	}{
		{name: "specialist creates", sess: specialist("s1")},
		{name: "anonymous", sess: nil, wantErr: ErrUnauthorized},
		{name: "student", sess: student("u1"), wantErr: ErrForbidden},
		{
			name:    "content does not match type",
			sess:    specialist("s1"),
			mutate:  func(r *models.ExerciseCreateRequest) { r.Content = json.RawMessage(`{"items":[]}`) },
			wantErr: validator.ValidationErrors{},
		},
		{
			name: "course visibility outside the course",
			sess: specialist("s1"),
			mutate: func(r *models.ExerciseCreateRequest) {
				r.Visibility = models.VisibilityCourse
				r.CourseID = ptr(courseA)
			},
			wantErr: ErrForbidden,
		},
		{
			name: "course visibility inside the course",
			sess: specialist("s1", courseA),
			mutate: func(r *models.ExerciseCreateRequest) {
				r.Visibility = models.VisibilityCourse
				r.CourseID = ptr(courseA)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, pub, svc := newExerciseFixture()
			req := valid()
			if tt.mutate != nil {
				tt.mutate(req)
			}

			view, err := svc.Create(context.Background(), tt.sess, req)
			if tt.wantErr != nil {
				require.Error(t, err)
				if _, ok := tt.wantErr.(validator.ValidationErrors); ok {
					var verrs validator.ValidationErrors
					assert.True(t, errors.As(err, &verrs))
				} else {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				assert.Empty(t, repo.exercises)
				assert.Empty(t, pub.GetPublishedEvents())
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, view.ID)
			assert.Equal(t, "Fractions", view.Title)
			assert.Equal(t, tt.sess.UserID(), view.SpecialistID)
			assert.Equal(t, []string{"math", "fractions"}, view.TagList())
			assert.Len(t, view.Labels, 2)
			assert.Contains(t, repo.exercises, view.ID)

			published := pub.GetPublishedEvents()
			require.Len(t, published, 1)
			assert.Equal(t, events.ExerciseCreated, published[0].Type)
			assert.Equal(t, view.ID, published[0].Subject)
		})
	}
}

func TestExerciseService_CreateSurvivesPublishFailure(t *testing.T) {
	repo, pub, svc := newExerciseFixture()
	pub.FailWith(errors.New("broker down"))

	view, err := svc.Create(context.Background(), specialist("s1"), &models.ExerciseCreateRequest{
		Title:      "Essay",
		Type:       models.TypeOpenAnswer,
		Visibility: models.VisibilityPrivate,
	})
	require.NoError(t, err)
	assert.Contains(t, repo.exercises, view.ID)
}

func TestExerciseService_GetByIDVisibility(t *testing.T) {
	tests := []struct {
		name       string
		visibility models.Visibility
		courseID   *string
		sess       *session.Session
		readable   bool
	}{
		{"owner reads private", models.VisibilityPrivate, nil, specialist("owner"), true},
		{"other cannot read private", models.VisibilityPrivate, nil, specialist("other"), false},
		{"anonymous reads public", models.VisibilityPublic, nil, nil, true},
		{"anonymous reads not-listed", models.VisibilityNotListed, nil, nil, true},
		{"anonymous cannot read institutional", models.VisibilityInstitutional, nil, nil, false},
		{"signed in reads institutional", models.VisibilityInstitutional, nil, student("u1"), true},
		{"member reads course", models.VisibilityCourse, ptr(courseA), student("u1", courseA), true},
		{"non member cannot read course", models.VisibilityCourse, ptr(courseA), student("u1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, svc := newExerciseFixture()
			seedExercise(t, repo, "e1", "owner", tt.visibility, tt.courseID)

			view, err := svc.GetByID(context.Background(), tt.sess, "e1")
			if !tt.readable {
				assert.ErrorIs(t, err, ErrExerciseNotFound)
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "e1", view.ID)
		})
	}
}

func TestExerciseService_GetByIDMissing(t *testing.T) {
	_, _, svc := newExerciseFixture()
	_, err := svc.GetByID(context.Background(), specialist("s1"), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExerciseService_List(t *testing.T) {
	repo, _, svc := newExerciseFixture()
	seedExercise(t, repo, "e1", "s1", models.VisibilityPublic, nil)
	seedExercise(t, repo, "e2", "s1", models.VisibilityPrivate, nil)

	t.Run("filters by visibility", func(t *testing.T) {
		page, err := svc.List(context.Background(), specialist("s1"), models.ListExercisesParams{Visibility: models.VisibilityPublic})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.TotalElements)
		assert.Equal(t, 20, page.Size)
		views := page.Content.([]models.ExerciseView)
		require.Len(t, views, 1)
		assert.Equal(t, "e1", views[0].ID)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		_, err := svc.List(context.Background(), nil, models.ListExercisesParams{Type: "essay"})
		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, "type", verrs[0].Field)
	})

	t.Run("unknown visibility is rejected", func(t *testing.T) {
		_, err := svc.List(context.Background(), nil, models.ListExercisesParams{Visibility: "secret"})
		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, "visibility", verrs[0].Field)
	})
}

func TestExerciseService_Delete(t *testing.T) {
	tests := []struct {
		name    string
		sess    *session.Session
		wantErr error
	}{
		{name: "owner deletes", sess: specialist("owner")},
		{name: "other specialist", sess: specialist("other"), wantErr: ErrForbidden},
		{name: "anonymous", sess: nil, wantErr: ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, pub, svc := newExerciseFixture()
			seedExercise(t, repo, "e1", "owner", models.VisibilityPublic, nil)

			err := svc.Delete(context.Background(), tt.sess, "e1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, repo.exercises, "e1")
				return
			}
			require.NoError(t, err)
			assert.NotContains(t, repo.exercises, "e1")
			published := pub.GetPublishedEvents()
			require.Len(t, published, 1)
			assert.Equal(t, events.ExerciseDeleted, published[0].Type)
		})
	}
}
