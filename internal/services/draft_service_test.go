package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalk-edu/chalk/internal/draft"
	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/validator"
)

func newDraftFixture() (*fakeRepo, *events.MockEventPublisher, *draft.Store, DraftService) {
	repo := newFakeRepo()
	pub := events.NewMockEventPublisher(testLogger())
	v := validator.New()
	store := draft.NewStore(time.Hour)
	exercises := NewExerciseService(repo, testLogger(), v, pub)
	tests := NewTestService(repo, testLogger(), v, pub)
	return repo, pub, store, NewDraftService(store, exercises, tests, testLogger(), v, pub)
}

func TestDraftService_Create(t *testing.T) {
	_, _, store, svc := newDraftFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, student("u1"), &models.DraftCreateRequest{Title: "Quiz"})
	assert.ErrorIs(t, err, ErrForbidden)

	view, err := svc.Create(ctx, specialist("s1"), &models.DraftCreateRequest{Title: " Quiz "})
	require.NoError(t, err)
	assert.Equal(t, "Quiz", view.Title)
	assert.Len(t, view.Groups, 1)
	assert.Equal(t, 1, store.Len())

	list, err := svc.List(ctx, specialist("s1"))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.List(ctx, specialist("s2"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDraftService_Dispatch(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		req     draft.Request
		wantErr error
		check   func(t *testing.T, v *draft.View)
	}{
		{
			name:  "add readable exercise",
			owner: "s1",
			req:   draft.Request{Type: draft.KindAddExercise, ExerciseID: "public"},
			check: func(t *testing.T, v *draft.View) {
				require.Len(t, v.Groups[0].Exercises, 1)
				assert.Equal(t, "public", v.Groups[0].Exercises[0].ID)
			},
		},
		{
			name:    "exercise id is required",
			owner:   "s1",
			req:     draft.Request{Type: "add_exercise"},
			wantErr: validator.ValidationErrors{},
		},
		{
			name:    "private exercise of someone else",
			owner:   "s1",
			req:     draft.Request{Type: draft.KindAddExercise, ExerciseID: "hidden"},
			wantErr: ErrExerciseNotFound,
		},
		{
			name:    "unknown action",
			owner:   "s1",
			req:     draft.Request{Type: "SHUFFLE"},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "bad group position",
			owner:   "s1",
			req:     draft.Request{Type: draft.KindRemoveGroup, GroupPosition: ptr(4)},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "another user's draft",
			owner:   "s2",
			req:     draft.Request{Type: draft.KindSetTitle, Title: "Mine now"},
			wantErr: ErrForbidden,
		},
		{
			name:  "add group",
			owner: "s1",
			req:   draft.Request{Type: draft.KindAddGroup, Title: "Part 2"},
			check: func(t *testing.T, v *draft.View) {
				require.Len(t, v.Groups, 2)
				assert.Equal(t, "Part 2", v.Groups[1].Title)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, store, svc := newDraftFixture()
			seedExercise(t, repo, "public", "s9", models.VisibilityPublic, nil)
			seedExercise(t, repo, "hidden", "s9", models.VisibilityPrivate, nil)
			d := store.Create("s1", "Quiz")

			view, err := svc.Dispatch(context.Background(), specialist(tt.owner), d.ID, tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				if _, ok := tt.wantErr.(validator.ValidationErrors); ok {
					assert.IsType(t, validator.ValidationErrors{}, err)
				} else {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				stored, getErr := store.Get(d.ID, "s1")
				require.NoError(t, getErr)
				assert.Same(t, d, stored)
				return
			}
			require.NoError(t, err)
			tt.check(t, view)
		})
	}
}

func TestDraftService_MissingDraft(t *testing.T) {
	_, _, _, svc := newDraftFixture()
	_, err := svc.Get(context.Background(), specialist("s1"), "nope")
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Discard(context.Background(), specialist("s1"), "nope"), ErrNotFound)
}

func TestDraftService_Submit(t *testing.T) {
	repo, pub, store, svc := newDraftFixture()
	ctx := context.Background()
	seedExercise(t, repo, "e1", "s1", models.VisibilityPublic, nil)

	d := store.Create("s1", "Final")
	_, err := svc.Dispatch(ctx, specialist("s1"), d.ID, draft.Request{Type: draft.KindAddExercise, ExerciseID: "e1"})
	require.NoError(t, err)

	test, err := svc.Submit(ctx, specialist("s1"), d.ID, &models.DraftSubmitRequest{Visibility: models.VisibilityPublic})
	require.NoError(t, err)
	assert.Equal(t, "Final", test.Title)
	assert.Equal(t, []string{"e1"}, test.ExerciseIDs())
	assert.Contains(t, repo.tests, test.ID)
	assert.Equal(t, 0, store.Len())

	var types []events.EventType
	for _, e := range pub.GetPublishedEvents() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.EventType{events.TestCreated, events.DraftSubmitted}, types)
}

func TestDraftService_SubmitEmptyDraftKeepsIt(t *testing.T) {
	_, _, store, svc := newDraftFixture()
	d := store.Create("s1", "Empty")

	_, err := svc.Submit(context.Background(), specialist("s1"), d.ID, &models.DraftSubmitRequest{Visibility: models.VisibilityPublic})
	require.Error(t, err)
	assert.Equal(t, 1, store.Len())
}
