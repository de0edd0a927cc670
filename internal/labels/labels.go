// Package labels maps exercise types and visibilities to their display labels.
package labels

import "github.com/chalk-edu/chalk/internal/models"

type Label = models.Label

var typeLabels = map[models.ExerciseType]Label{
	models.TypeMultipleChoice: {Text: "Escolha múltipla", Icon: "checked-list"},
	models.TypeOpenAnswer:     {Text: "Resposta aberta", Icon: "text"},
	models.TypeTrueOrFalse:    {Text: "Verdadeiro ou falso", Icon: "checkbox"},
	models.TypeChat:           {Text: "Chat Question", Icon: "chats"},
}

var visibilityLabels = map[models.Visibility]Label{
	models.VisibilityPrivate:       {Text: "Privado", Icon: "lock"},
	models.VisibilityNotListed:     {Text: "Não listado", Icon: "link"},
	models.VisibilityCourse:        {Text: "Curso", Icon: "graduate"},
	models.VisibilityInstitutional: {Text: "Institucional", Icon: "school"},
	models.VisibilityPublic:        {Text: "Público", Icon: "world-search"},
}

// ForType returns the label of t. ok is false for undeclared types.
func ForType(t models.ExerciseType) (Label, bool) {
	l, ok := typeLabels[t]
	return l, ok
}

// ForVisibility returns the label of v. ok is false for undeclared values.
func ForVisibility(v models.Visibility) (Label, bool) {
	l, ok := visibilityLabels[v]
	return l, ok
}

// Project returns the visibility label followed by the type label, skipping
// whichever is unknown.
func Project(t models.ExerciseType, v models.Visibility) []Label {
	out := make([]Label, 0, 2)
	if l, ok := ForVisibility(v); ok {
		out = append(out, l)
	}
	if l, ok := ForType(t); ok {
		out = append(out, l)
	}
	return out
}

// Catalog is every declared label, keyed by wire value
type Catalog struct {
	Types        map[models.ExerciseType]Label `json:"types"`
	Visibilities map[models.Visibility]Label   `json:"visibilities"`
}

func All() Catalog {
	c := Catalog{
		Types:        make(map[models.ExerciseType]Label, len(typeLabels)),
		Visibilities: make(map[models.Visibility]Label, len(visibilityLabels)),
	}
	for k, v := range typeLabels {
		c.Types[k] = v
	}
	for k, v := range visibilityLabels {
		c.Visibilities[k] = v
	}
	return c
}

// View attaches labels to an exercise
func View(e *models.Exercise) models.ExerciseView {
	return models.ExerciseView{Exercise: e, Labels: Project(e.Type, e.Visibility)}
}
