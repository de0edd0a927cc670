package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTopic carries every Chalk domain event
	DefaultTopic = "chalk.events"

	eventSource  = "chalk"
	eventVersion = "1.0"
)

type EventType string

const (
	ExerciseCreated     EventType = "exercise.created"
	ExerciseDeleted     EventType = "exercise.deleted"
	TestCreated         EventType = "test.created"
	DraftSubmitted      EventType = "draft.submitted"
	ResolutionSubmitted EventType = "resolution.submitted"
	UserRegistered      EventType = "user.registered"
	UserLoggedIn        EventType = "user.logged_in"
	UserLoggedOut       EventType = "user.logged_out"
)

// Event is the envelope published on the events topic
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Subject   string      `json:"subject,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// NewEvent stamps a new envelope. subject is the ID of the entity the event
// is about.
func NewEvent(t EventType, subject string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Subject:   subject,
		Data:      data,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Payloads

type ExercisePayload struct {
	ExerciseID   string `json:"exercise_id"`
	SpecialistID string `json:"specialist_id"`
	Type         string `json:"type"`
	Visibility   string `json:"visibility"`
}

type TestPayload struct {
	TestID       string `json:"test_id"`
	SpecialistID string `json:"specialist_id"`
	DraftID      string `json:"draft_id,omitempty"`
	Exercises    int    `json:"exercises"`
}

type ResolutionPayload struct {
	ResolutionID string  `json:"resolution_id"`
	TestID       string  `json:"test_id"`
	StudentID    string  `json:"student_id"`
	SubmissionNr int     `json:"submission_nr"`
	TotalPoints  float64 `json:"total_points"`
}

type UserPayload struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}
