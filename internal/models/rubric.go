package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StandardLevel is the severity a Standard describes
type StandardLevel string

const (
	LevelExcelent       StandardLevel = "5"
	LevelWellDone       StandardLevel = "4"
	LevelSatisfactory   StandardLevel = "3"
	LevelInsatisfactory StandardLevel = "2"
)

// StandardLevels lists the levels in declaration order, best first
var StandardLevels = []StandardLevel{LevelExcelent, LevelWellDone, LevelSatisfactory, LevelInsatisfactory}

var levelNames = map[StandardLevel]string{
	LevelExcelent:       "EXCELENT",
	LevelWellDone:       "WELL_DONE",
	LevelSatisfactory:   "SATISFACTORY",
	LevelInsatisfactory: "INSATISFACTORY",
}

var ErrInvalidRubric = errors.New("invalid rubric")

func (l StandardLevel) IsValid() bool {
	_, ok := levelNames[l]
	return ok
}

// Name returns the enum name of the level, e.g. "WELL_DONE"
func (l StandardLevel) Name() string {
	return levelNames[l]
}

// ParseStandardLevel accepts either the level value ("4") or its name ("WELL_DONE")
func ParseStandardLevel(raw string) (StandardLevel, error) {
	if l := StandardLevel(raw); l.IsValid() {
		return l, nil
	}
	for l, name := range levelNames {
		if name == raw {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown standard level %q", ErrInvalidRubric, raw)
}

// UnmarshalJSON accepts the level value ("4" or 4) or its name ("WELL_DONE").
// Unknown values are kept as sent so that Validate can report them.
func (l *StandardLevel) UnmarshalJSON(data []byte) error {
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("standard level must be a string or number: %w", err)
		}
		raw = n.String()
	}
	if parsed, err := ParseStandardLevel(raw); err == nil {
		*l = parsed
		return nil
	}
	*l = StandardLevel(raw)
	return nil
}

type Standard struct {
	Title       StandardLevel `json:"title"`
	Description string        `json:"description"`
	Percentage  float64       `json:"percentage"`
}

type Criteria struct {
	Title     string     `json:"title"`
	Points    float64    `json:"points"`
	Standards []Standard `json:"standards"`
}

type Rubric struct {
	Criteria []Criteria `json:"criteria"`
}

// NewCriteria returns an untitled criteria with one blank standard per level
func NewCriteria() Criteria {
	standards := make([]Standard, 0, len(StandardLevels))
	for _, level := range StandardLevels {
		standards = append(standards, Standard{Title: level})
	}
	return Criteria{Standards: standards}
}

// Standard returns the standard for level
func (c Criteria) Standard(level StandardLevel) (Standard, bool) {
	for _, s := range c.Standards {
		if s.Title == level {
			return s, true
		}
	}
	return Standard{}, false
}

// TotalPoints sums the points of every criteria
func (r *Rubric) TotalPoints() float64 {
	var total float64
	for _, c := range r.Criteria {
		total += c.Points
	}
	return total
}

// RubricProblem is one structural defect of a rubric
type RubricProblem struct {
	Field   string
	Message string
}

func (p RubricProblem) Error() string {
	return p.Field + ": " + p.Message
}

// Problems lists every structural defect of the rubric
func (r *Rubric) Problems() []RubricProblem {
	var problems []RubricProblem
	add := func(field, format string, args ...any) {
		problems = append(problems, RubricProblem{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for i, c := range r.Criteria {
		path := fmt.Sprintf("criteria[%d]", i)
		if c.Points < 0 {
			add(path+".points", "cannot be negative")
		}
		if len(c.Standards) != len(StandardLevels) {
			add(path+".standards", "expected %d standards, got %d", len(StandardLevels), len(c.Standards))
		}
		seen := make(map[StandardLevel]bool, len(c.Standards))
		for j, s := range c.Standards {
			spath := fmt.Sprintf("%s.standards[%d]", path, j)
			if !s.Title.IsValid() {
				add(spath+".title", "unknown level %q", s.Title)
				continue
			}
			if seen[s.Title] {
				add(spath+".title", "duplicate level %s", s.Title.Name())
			}
			seen[s.Title] = true
			if s.Percentage < 0 || s.Percentage > 100 {
				add(spath+".percentage", "must be between 0 and 100")
			}
		}
	}
	return problems
}

// Validate reports every structural problem of the rubric at once
func (r *Rubric) Validate() error {
	problems := r.Problems()
	if len(problems) == 0 {
		return nil
	}
	errs := make([]error, 0, len(problems))
	for _, p := range problems {
		errs = append(errs, p)
	}
	return fmt.Errorf("%w: %w", ErrInvalidRubric, errors.Join(errs...))
}

// ParseRubric decodes the JSON form of a rubric
func ParseRubric(data []byte) (*Rubric, error) {
	var r Rubric
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}
	return &r, nil
}

// MarshalRubric encodes r to its JSON form
func MarshalRubric(r *Rubric) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}
