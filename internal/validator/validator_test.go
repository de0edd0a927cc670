package validator

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalk-edu/chalk/internal/models"
)

func fields(errs ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	err := v.Validate(&models.LoginRequest{Email: "not-an-email"})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.ElementsMatch(t, []string{"email", "password"}, fields(verrs))

	assert.NoError(t, v.Validate(&models.LoginRequest{Email: "ana@example.com", Password: "x"}))
}

func TestBusinessValidator_ExerciseCreate(t *testing.T) {
	bv := NewBusinessValidator()
	course := "0b9a7e1c-8a55-4d53-9a4e-2f7e5c0b2a11"

	base := func() *models.ExerciseCreateRequest {
		return &models.ExerciseCreateRequest{
			Title:      "Capitals",
			Type:       models.TypeMultipleChoice,
			Visibility: models.VisibilityPublic,
			Content:    json.RawMessage(`{"items":[{"text":"Lisbon","correct":true},{"text":"Porto"}]}`),
		}
	}

	tests := []struct {
		name   string
		mutate func(r *models.ExerciseCreateRequest)
		want   []string
	}{
		{name: "valid", mutate: func(r *models.ExerciseCreateRequest) {}},
		{name: "unknown type", mutate: func(r *models.ExerciseCreateRequest) { r.Type = "essay" }, want: []string{"type"}},
		{name: "unknown visibility", mutate: func(r *models.ExerciseCreateRequest) { r.Visibility = "friends" }, want: []string{"visibility"}},
		{name: "bad content", mutate: func(r *models.ExerciseCreateRequest) { r.Content = json.RawMessage(`{"items":[]}`) }, want: []string{"content"}},
		{name: "course without id", mutate: func(r *models.ExerciseCreateRequest) { r.Visibility = models.VisibilityCourse }, want: []string{"course_id"}},
		{name: "course with id", mutate: func(r *models.ExerciseCreateRequest) {
			r.Visibility = models.VisibilityCourse
			r.CourseID = &course
		}},
		{name: "duplicate tags", mutate: func(r *models.ExerciseCreateRequest) { r.Tags = []string{"geo", "Geo"} }, want: []string{"tags[1]"}},
		{name: "invalid rubric", mutate: func(r *models.ExerciseCreateRequest) {
			c := models.NewCriteria()
			c.Points = -2
			r.Rubric = &models.Rubric{Criteria: []models.Criteria{c}}
		}, want: []string{"rubric.criteria[0].points"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)
			errs := bv.ValidateExerciseCreate(req)
			if len(tt.want) == 0 {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, fields(errs))
		})
	}
}

func TestBusinessValidator_TestCreate(t *testing.T) {
	bv := NewBusinessValidator()

	ok := &models.TestCreateRequest{
		Title:      "Midterm",
		Visibility: models.VisibilityPrivate,
		Groups:     []models.TestGroup{{Title: "I", ExerciseIDs: []string{"a", "b"}, Points: 10}},
	}
	assert.Empty(t, bv.ValidateTestCreate(ok))

	dup := *ok
	dup.Groups = []models.TestGroup{{ExerciseIDs: []string{"a"}}, {ExerciseIDs: []string{"a"}, Points: -1}}
	assert.Equal(t, []string{"groups[1].points", "groups[1].exercise_ids[0]"}, fields(bv.ValidateTestCreate(&dup)))

	empty := *ok
	empty.Groups = []models.TestGroup{{Title: "nothing"}}
	assert.Equal(t, []string{"groups"}, fields(bv.ValidateTestCreate(&empty)))

	none := *ok
	none.Groups = nil
	assert.Contains(t, fields(bv.ValidateTestCreate(&none)), "groups")
}

func TestBusinessValidator_Resolution(t *testing.T) {
	bv := NewBusinessValidator()
	neg := -1.0
	req := &models.ResolutionCreateRequest{
		TestID: "0b9a7e1c-8a55-4d53-9a4e-2f7e5c0b2a11",
		Groups: []models.ResolutionGroup{{GroupIndex: 0}, {GroupIndex: 0}, {GroupIndex: 5, Points: &neg}},
	}

	got := fields(bv.ValidateResolution(req, 2))
	assert.Equal(t, []string{"groups[1].group_index", "groups[2].group_index", "groups[2].points"}, got)
}

func TestToValidationErrors_PlainError(t *testing.T) {
	errs := ToValidationErrors(errors.New("boom"))
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Message)
	assert.Nil(t, ToValidationErrors(nil))
	assert.Equal(t, "validation failed: 2 field errors", ValidationErrors{{}, {}}.Error())
}
