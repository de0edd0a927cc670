package models

import "time"

type Course struct {
	ID            string  `json:"id" gorm:"primaryKey;size:36"`
	Name          string  `json:"name" gorm:"not null;size:200"`
	Description   *string `json:"description" gorm:"type:text"`
	InstitutionID *string `json:"institution_id" gorm:"index;size:255"`
	CreatedBy     string  `json:"created_by" gorm:"not null;index;size:255"`

	Members []CourseMember `json:"members,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseMember links a user to a course as a specialist or a student
type CourseMember struct {
	CourseID  string    `json:"course_id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" gorm:"primaryKey;size:255;index"`
	Role      UserRole  `json:"role" gorm:"not null;size:32"`
	CreatedAt time.Time `json:"created_at"`
}

func (CourseMember) TableName() string {
	return "course_members"
}

// CourseRef is the short form of a course carried in a session
type CourseRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Course) Ref() CourseRef {
	return CourseRef{ID: c.ID, Name: c.Name}
}
