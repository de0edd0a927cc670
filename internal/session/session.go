// Package session describes the signed-in user as seen by one request.
package session

import (
	"strings"

	"github.com/chalk-edu/chalk/internal/models"
)

// DarkModeKey is the preference key the frontend persists dark mode under
const DarkModeKey = "dark-mode"

// Session is built per request and passed explicitly to whatever needs it
type Session struct {
	User        *models.User       `json:"user"`
	Courses     []models.CourseRef `json:"courses"`
	Preferences models.Preferences `json:"preferences"`
	ID          string             `json:"-"`
}

func New(user *models.User, courses []models.CourseRef) *Session {
	s := &Session{User: user, Courses: courses}
	if user != nil {
		s.Preferences = user.Preferences
	}
	if s.Courses == nil {
		s.Courses = []models.CourseRef{}
	}
	return s
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.User != nil && s.User.ID != ""
}

func (s *Session) UserID() string {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.User.ID
}

func (s *Session) HasRole(role models.UserRole) bool {
	return s.IsAuthenticated() && s.User.Role == role
}

func (s *Session) InCourse(courseID string) bool {
	if s == nil {
		return false
	}
	for _, c := range s.Courses {
		if c.ID == courseID {
			return true
		}
	}
	return false
}

// FormatDarkMode encodes the flag the way it is stored: "true" or "false"
func FormatDarkMode(on bool) string {
	if on {
		return "true"
	}
	return "false"
}

// ParseDarkMode decodes a stored flag. Anything but "true" is off.
func ParseDarkMode(raw string) bool {
	return strings.TrimSpace(raw) == "true"
}

// PreferenceMap returns preferences in their stored key/value form
func PreferenceMap(p models.Preferences) map[string]string {
	return map[string]string{DarkModeKey: FormatDarkMode(p.DarkMode)}
}

// PreferencesFromMap reads the stored key/value form; missing keys keep defaults
func PreferencesFromMap(m map[string]string) models.Preferences {
	var p models.Preferences
	if raw, ok := m[DarkModeKey]; ok {
		p.DarkMode = ParseDarkMode(raw)
	}
	return p
}
