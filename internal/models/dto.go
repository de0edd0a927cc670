package models

import (
	"encoding/json"
	"time"
)

// ===== EXERCISE DTOs =====

type ExerciseCreateRequest struct {
	Title         string          `json:"title" validate:"required,min=1,max=200"`
	Statement     string          `json:"statement" validate:"max=10000"`
	Type          ExerciseType    `json:"type" validate:"required,exercise_type"`
	Visibility    Visibility      `json:"visibility" validate:"required,visibility"`
	Content       json.RawMessage `json:"content"`
	Rubric        *Rubric         `json:"rubric"`
	Tags          []string        `json:"tags" validate:"max=20,dive,min=1,max=50"`
	CourseID      *string         `json:"course_id" validate:"omitempty,uuid"`
	InstitutionID *string         `json:"institution_id"`
}

type ListExercisesParams struct {
	Page         int          `json:"page" validate:"min=0"`
	Size         int          `json:"size" validate:"min=1,max=100"`
	Search       string       `json:"search"`
	Type         ExerciseType `json:"type"`
	Visibility   Visibility   `json:"visibility"`
	CourseID     *string      `json:"course_id"`
	SpecialistID *string      `json:"specialist_id"`
	Tags         []string     `json:"tags"`
	SortBy       string       `json:"sort_by"`
	SortDir      string       `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
}

// ExerciseView is an exercise together with its display labels
type ExerciseView struct {
	*Exercise
	Labels []Label `json:"labels"`
}

// Label is the display form of an exercise type or visibility
type Label struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

// ===== TEST DTOs =====

type TestCreateRequest struct {
	Title       string      `json:"title" validate:"required,min=1,max=200"`
	CourseID    *string     `json:"course_id" validate:"omitempty,uuid"`
	Visibility  Visibility  `json:"visibility" validate:"required,visibility"`
	Groups      []TestGroup `json:"groups" validate:"required,min=1,dive"`
	PublishDate *time.Time  `json:"publish_date"`
}

type ListTestsParams struct {
	Page         int     `json:"page" validate:"min=0"`
	Size         int     `json:"size" validate:"min=1,max=100"`
	Title        string  `json:"title"`
	SpecialistID *string `json:"specialist_id"`
	CourseID     *string `json:"course_id"`
	// Visibility is parsed strictly by the service; unknown values are rejected
	Visibility string `json:"visibility"`
	SortBy     string `json:"sort_by"`
	SortDir    string `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
}

// ===== DRAFT DTOs =====

type DraftCreateRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type DraftSubmitRequest struct {
	Visibility  Visibility `json:"visibility" validate:"required,visibility"`
	CourseID    *string    `json:"course_id" validate:"omitempty,uuid"`
	PublishDate *time.Time `json:"publish_date"`
}

// ===== COURSE DTOs =====

type CourseCreateRequest struct {
	Name          string  `json:"name" validate:"required,min=1,max=200"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	InstitutionID *string `json:"institution_id"`
}

type CourseMemberRequest struct {
	UserID string   `json:"user_id" validate:"required"`
	Role   UserRole `json:"role" validate:"required,user_role"`
}

// ===== RESOLUTION DTOs =====

type ResolutionCreateRequest struct {
	TestID    string            `json:"test_id" validate:"required,uuid"`
	Groups    []ResolutionGroup `json:"groups" validate:"dive"`
	StartDate *time.Time        `json:"start_date"`
	Submit    bool              `json:"submit"`
}

type ResolutionCount struct {
	TestID    string `json:"test_id"`
	StudentID string `json:"student_id"`
	Count     int64  `json:"count"`
}

// ===== AUTH DTOs =====

type RegisterRequest struct {
	Name     string   `json:"name" binding:"required" validate:"required,min=1,max=100"`
	Email    string   `json:"email" binding:"required" validate:"required,email"`
	Password string   `json:"password" binding:"required" validate:"required,min=8,max=72"`
	Role     UserRole `json:"role" validate:"required,user_role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required" validate:"required,email"`
	Password string `json:"password" binding:"required" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

type PreferencesUpdateRequest struct {
	DarkMode *bool `json:"dark_mode" binding:"required"`
}

// ===== PAGINATION =====

type PaginatedResponse struct {
	Content          interface{} `json:"content"`
	TotalElements    int64       `json:"total_elements"`
	TotalPages       int         `json:"total_pages"`
	Size             int         `json:"size"`
	Page             int         `json:"page"`
	First            bool        `json:"first"`
	Last             bool        `json:"last"`
	NumberOfElements int         `json:"number_of_elements"`
	Empty            bool        `json:"empty"`
}

// NewPaginatedResponse builds the page envelope around content of n items
func NewPaginatedResponse(content interface{}, n int, total int64, page, size int) *PaginatedResponse {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return &PaginatedResponse{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		Size:             size,
		Page:             page,
		First:            page == 0,
		Last:             page >= totalPages-1,
		NumberOfElements: n,
		Empty:            n == 0,
	}
}
