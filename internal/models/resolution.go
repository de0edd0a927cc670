package models

import (
	"time"

	"gorm.io/datatypes"
)

type ResolutionStatus string

const (
	ResolutionOngoing   ResolutionStatus = "ongoing"
	ResolutionSubmitted ResolutionStatus = "submitted"
	ResolutionRevised   ResolutionStatus = "revised"
)

func (s ResolutionStatus) IsValid() bool {
	switch s {
	case ResolutionOngoing, ResolutionSubmitted, ResolutionRevised:
		return true
	}
	return false
}

// ResolutionGroup holds the grade of one test group. Points stay nil until graded.
type ResolutionGroup struct {
	GroupIndex int              `json:"group_index"`
	Points     *float64         `json:"points"`
	Answers    []datatypes.JSON `json:"answers,omitempty"`
}

// TestResolution is one student submission of a test
type TestResolution struct {
	ID             string           `json:"id" gorm:"primaryKey;size:36"`
	TestID         string           `json:"test_id" gorm:"not null;index:idx_resolution_test_student;uniqueIndex:idx_resolution_submission,priority:1;size:36"`
	StudentID      string           `json:"student_id" gorm:"not null;index:idx_resolution_test_student;uniqueIndex:idx_resolution_submission,priority:2;size:255"`
	SubmissionNr   int              `json:"submission_nr" gorm:"not null;uniqueIndex:idx_resolution_submission,priority:3"`
	StartDate      *time.Time       `json:"start_date"`
	SubmissionDate *time.Time       `json:"submission_date"`
	Status         ResolutionStatus `json:"status" gorm:"not null;size:16;default:ongoing"`

	Groups      datatypes.JSONSlice[ResolutionGroup] `json:"groups" gorm:"type:jsonb"`
	TotalPoints float64                              `json:"total_points"`

	CreatedAt time.Time `json:"created_at"`
}

func (TestResolution) TableName() string {
	return "test_resolutions"
}

// UpdateSum recomputes TotalPoints from the graded groups
func (r *TestResolution) UpdateSum() float64 {
	var total float64
	for _, g := range r.Groups {
		if g.Points != nil {
			total += *g.Points
		}
	}
	r.TotalPoints = total
	return total
}
