package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type ExerciseType string

const (
	TypeMultipleChoice ExerciseType = "multiple-choice"
	TypeOpenAnswer     ExerciseType = "open-answer"
	TypeTrueOrFalse    ExerciseType = "true-or-false"
	TypeChat           ExerciseType = "chat"
)

// ExerciseTypes lists the declared exercise types in display order
var ExerciseTypes = []ExerciseType{TypeMultipleChoice, TypeOpenAnswer, TypeTrueOrFalse, TypeChat}

func (t ExerciseType) IsValid() bool {
	switch t {
	case TypeMultipleChoice, TypeOpenAnswer, TypeTrueOrFalse, TypeChat:
		return true
	}
	return false
}

type Visibility string

const (
	VisibilityPrivate       Visibility = "private"
	VisibilityNotListed     Visibility = "not-listed"
	VisibilityCourse        Visibility = "course"
	VisibilityInstitutional Visibility = "institutional"
	VisibilityPublic        Visibility = "public"
)

// Visibilities lists the declared visibility scopes from narrowest to widest
var Visibilities = []Visibility{
	VisibilityPrivate,
	VisibilityNotListed,
	VisibilityCourse,
	VisibilityInstitutional,
	VisibilityPublic,
}

var (
	ErrUnknownExerciseType = errors.New("unknown exercise type")
	ErrUnknownVisibility   = errors.New("unknown visibility")
	ErrInvalidContent      = errors.New("invalid exercise content")
)

func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPrivate, VisibilityNotListed, VisibilityCourse, VisibilityInstitutional, VisibilityPublic:
		return true
	}
	return false
}

// ParseVisibility converts a wire value, rejecting anything undeclared
func ParseVisibility(raw string) (Visibility, error) {
	v := Visibility(raw)
	if !v.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownVisibility, raw)
	}
	return v, nil
}

// ParseExerciseType converts a wire value, rejecting anything undeclared
func ParseExerciseType(raw string) (ExerciseType, error) {
	t := ExerciseType(raw)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownExerciseType, raw)
	}
	return t, nil
}

// Exercise is a single question. Values handed out by repositories are shared
// between the bank, search results and drafts, so they must not be mutated.
type Exercise struct {
	ID         string       `json:"id" gorm:"primaryKey;size:36"`
	Visibility Visibility   `json:"visibility" gorm:"not null;index;size:32;default:private"`
	Type       ExerciseType `json:"type" gorm:"not null;index;size:32"`

	// Base content
	Title     string `json:"title" gorm:"not null;size:200;index"`
	Statement string `json:"statement" gorm:"type:text"`

	// Variant payload, decoded according to Type
	Content datatypes.JSON `json:"content" gorm:"type:jsonb"`
	Rubric  datatypes.JSON `json:"rubric,omitempty" gorm:"type:jsonb"`
	Tags    datatypes.JSON `json:"tags" gorm:"type:jsonb"` // []string

	// Ownership
	SpecialistID  string  `json:"specialist_id" gorm:"not null;index;size:255"`
	CourseID      *string `json:"course_id" gorm:"index;size:36"`
	InstitutionID *string `json:"institution_id" gorm:"index;size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Exercise) TableName() string {
	return "exercises"
}

// TagList decodes the tags column; a malformed column yields no tags
func (e *Exercise) TagList() []string {
	if len(e.Tags) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(e.Tags, &tags); err != nil {
		return nil
	}
	return tags
}

// DecodeContent decodes the variant payload for the exercise type
func (e *Exercise) DecodeContent() (ExerciseContent, error) {
	return DecodeContent(e.Type, e.Content)
}

// DecodeRubric returns the attached rubric, or nil when there is none
func (e *Exercise) DecodeRubric() (*Rubric, error) {
	if len(e.Rubric) == 0 || string(e.Rubric) == "null" {
		return nil, nil
	}
	return ParseRubric(e.Rubric)
}

// ===== EXERCISE CONTENT VARIANTS =====

// ExerciseContent is implemented by every type-specific payload
type ExerciseContent interface {
	ExerciseType() ExerciseType
	Validate() error
}

type ChoiceItem struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type MultipleChoiceContent struct {
	Items []ChoiceItem `json:"items"`
}

func (MultipleChoiceContent) ExerciseType() ExerciseType { return TypeMultipleChoice }

func (c MultipleChoiceContent) Validate() error {
	if len(c.Items) < 2 {
		return fmt.Errorf("%w: multiple choice needs at least 2 items", ErrInvalidContent)
	}
	correct := 0
	for i, item := range c.Items {
		if item.Text == "" {
			return fmt.Errorf("%w: item %d has no text", ErrInvalidContent, i)
		}
		if item.Correct {
			correct++
		}
	}
	if correct == 0 {
		return fmt.Errorf("%w: multiple choice needs a correct item", ErrInvalidContent)
	}
	return nil
}

type TrueOrFalseContent struct {
	Items []ChoiceItem `json:"items"`
}

func (TrueOrFalseContent) ExerciseType() ExerciseType { return TypeTrueOrFalse }

func (c TrueOrFalseContent) Validate() error {
	if len(c.Items) == 0 {
		return fmt.Errorf("%w: true or false needs at least 1 item", ErrInvalidContent)
	}
	for i, item := range c.Items {
		if item.Text == "" {
			return fmt.Errorf("%w: item %d has no text", ErrInvalidContent, i)
		}
	}
	return nil
}

type OpenAnswerContent struct {
	AnswerHint string `json:"answer_hint,omitempty"`
}

func (OpenAnswerContent) ExerciseType() ExerciseType { return TypeOpenAnswer }
func (OpenAnswerContent) Validate() error            { return nil }

type ChatContent struct {
	Topics     []string `json:"topics"`
	MaxAnswers int      `json:"max_answers"`
}

func (ChatContent) ExerciseType() ExerciseType { return TypeChat }

func (c ChatContent) Validate() error {
	if c.MaxAnswers < 0 {
		return fmt.Errorf("%w: max_answers cannot be negative", ErrInvalidContent)
	}
	return nil
}

// DecodeContent decodes raw into the payload matching t. An empty payload
// decodes to the zero value of the variant.
func DecodeContent(t ExerciseType, raw []byte) (ExerciseContent, error) {
	var content ExerciseContent
	switch t {
	case TypeMultipleChoice:
		content = &MultipleChoiceContent{}
	case TypeOpenAnswer:
		content = &OpenAnswerContent{}
	case TypeTrueOrFalse:
		content = &TrueOrFalseContent{}
	case TypeChat:
		content = &ChatContent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExerciseType, t)
	}

	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, content); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
	}
	return content, nil
}
