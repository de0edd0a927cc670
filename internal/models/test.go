package models

import (
	"time"

	"gorm.io/datatypes"
)

// TestGroup is a titled section of a test holding exercise references
type TestGroup struct {
	Title       string   `json:"title"`
	ExerciseIDs []string `json:"exercise_ids"`
	Points      float64  `json:"points"`
}

type Test struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	Title         string     `json:"title" gorm:"not null;size:200;index"`
	SpecialistID  string     `json:"specialist_id" gorm:"not null;index;size:255"`
	CourseID      *string    `json:"course_id" gorm:"index;size:36"`
	InstitutionID *string    `json:"institution_id" gorm:"size:255"`
	Visibility    Visibility `json:"visibility" gorm:"not null;index;size:32;default:private"`

	Groups datatypes.JSONSlice[TestGroup] `json:"groups" gorm:"type:jsonb"`

	CreationDate time.Time  `json:"creation_date" gorm:"not null"`
	PublishDate  *time.Time `json:"publish_date"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Test) TableName() string {
	return "tests"
}

// ExerciseIDs returns every referenced exercise in group order
func (t *Test) ExerciseIDs() []string {
	var ids []string
	for _, g := range t.Groups {
		ids = append(ids, g.ExerciseIDs...)
	}
	return ids
}

// TotalPoints sums the points of every group
func (t *Test) TotalPoints() float64 {
	var total float64
	for _, g := range t.Groups {
		total += g.Points
	}
	return total
}
