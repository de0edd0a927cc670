package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCriteria(t *testing.T) {
	c := NewCriteria()

	require.Len(t, c.Standards, 4)
	for i, level := range []StandardLevel{LevelExcelent, LevelWellDone, LevelSatisfactory, LevelInsatisfactory} {
		assert.Equal(t, level, c.Standards[i].Title)
		assert.Empty(t, c.Standards[i].Description)
		assert.Zero(t, c.Standards[i].Percentage)
	}
	assert.Empty(t, c.Title)
	assert.Zero(t, c.Points)
}

func TestRubric_JSONRoundTrip(t *testing.T) {
	c1 := NewCriteria()
	c1.Title = "Clarity"
	c1.Points = 4.5
	c1.Standards[0].Description = "Crystal clear"
	c1.Standards[0].Percentage = 100
	c1.Standards[3].Percentage = 10

	c2 := NewCriteria()
	c2.Title = "Correctness"
	c2.Points = 10

	in := &Rubric{Criteria: []Criteria{c1, c2}}

	data, err := MarshalRubric(in)
	require.NoError(t, err)

	out, err := ParseRubric(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, 14.5, out.TotalPoints())
}

func TestRubric_Validate(t *testing.T) {
	valid := NewCriteria()
	valid.Points = 5

	negative := NewCriteria()
	negative.Points = -1

	missing := NewCriteria()
	missing.Standards = missing.Standards[:3]

	duplicate := NewCriteria()
	duplicate.Standards[1].Title = LevelExcelent

	tooMuch := NewCriteria()
	tooMuch.Standards[2].Percentage = 120

	tests := []struct {
		name    string
		rubric  Rubric
		wantErr bool
	}{
		{name: "empty", rubric: Rubric{}},
		{name: "valid", rubric: Rubric{Criteria: []Criteria{valid}}},
		{name: "negative points", rubric: Rubric{Criteria: []Criteria{negative}}, wantErr: true},
		{name: "missing level", rubric: Rubric{Criteria: []Criteria{missing}}, wantErr: true},
		{name: "duplicate level", rubric: Rubric{Criteria: []Criteria{duplicate}}, wantErr: true},
		{name: "percentage over 100", rubric: Rubric{Criteria: []Criteria{tooMuch}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rubric.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRubric)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseStandardLevel(t *testing.T) {
	l, err := ParseStandardLevel("WELL_DONE")
	require.NoError(t, err)
	assert.Equal(t, LevelWellDone, l)

	l, err = ParseStandardLevel("2")
	require.NoError(t, err)
	assert.Equal(t, "INSATISFACTORY", l.Name())

	_, err = ParseStandardLevel("1")
	assert.ErrorIs(t, err, ErrInvalidRubric)
}

func TestRubric_ParseStandardTitles(t *testing.T) {
	tests := []struct {
		name   string
		titles [4]string
	}{
		{"level names", [4]string{`"EXCELENT"`, `"WELL_DONE"`, `"SATISFACTORY"`, `"INSATISFACTORY"`}},
		{"level values", [4]string{`"5"`, `"4"`, `"3"`, `"2"`}},
		{"numeric values", [4]string{`5`, `4`, `3`, `2`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(`{"criteria":[{"title":"Clarity","points":5,"standards":[` +
				`{"title":` + tt.titles[0] + `,"description":"","percentage":100},` +
				`{"title":` + tt.titles[1] + `,"description":"","percentage":75},` +
				`{"title":` + tt.titles[2] + `,"description":"","percentage":50},` +
				`{"title":` + tt.titles[3] + `,"description":"","percentage":0}]}]}`)

			r, err := ParseRubric(data)
			require.NoError(t, err)
			require.NoError(t, r.Validate())
			for i, level := range StandardLevels {
				assert.Equal(t, level, r.Criteria[0].Standards[i].Title)
			}
		})
	}
}

func TestRubric_UnknownStandardTitleIsReported(t *testing.T) {
	r, err := ParseRubric([]byte(`{"criteria":[{"title":"Clarity","points":5,"standards":[{"title":"PERFECT"}]}]}`))
	require.NoError(t, err)

	assert.Equal(t, StandardLevel("PERFECT"), r.Criteria[0].Standards[0].Title)
	assert.ErrorIs(t, r.Validate(), ErrInvalidRubric)
}
