package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chalk-edu/chalk/internal/models"
)

func TestForVisibility(t *testing.T) {
	tests := []struct {
		visibility models.Visibility
		want       string
		ok         bool
	}{
		{models.VisibilityPrivate, "Privado", true},
		{models.VisibilityNotListed, "Não listado", true},
		{models.VisibilityCourse, "Curso", true},
		{models.VisibilityInstitutional, "Institucional", true},
		{models.VisibilityPublic, "Público", true},
		{"secret", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.visibility), func(t *testing.T) {
			got, ok := ForVisibility(tt.visibility)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.Text)
		})
	}
}

func TestForType(t *testing.T) {
	for _, typ := range models.ExerciseTypes {
		l, ok := ForType(typ)
		assert.True(t, ok, "type %s has no label", typ)
		assert.NotEmpty(t, l.Text)
		assert.NotEmpty(t, l.Icon)
	}

	_, ok := ForType("essay")
	assert.False(t, ok)
}

func TestProject(t *testing.T) {
	for _, v := range models.Visibilities {
		for _, typ := range models.ExerciseTypes {
			assert.Len(t, Project(typ, v), 2, "%s/%s", typ, v)
		}
	}

	got := Project("essay", models.VisibilityPublic)
	assert.Equal(t, []Label{{Text: "Público", Icon: "world-search"}}, got)

	assert.Empty(t, Project("essay", "secret"))
}

func TestAll(t *testing.T) {
	c := All()
	assert.Len(t, c.Types, len(models.ExerciseTypes))
	assert.Len(t, c.Visibilities, len(models.Visibilities))
}
