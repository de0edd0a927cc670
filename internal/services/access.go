package services

import (
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/session"
)

// canRead applies the visibility rules shared by exercises and tests.
// Institutional content is open to any signed-in user.
func canRead(sess *session.Session, ownerID string, v models.Visibility, courseID *string) bool {
	if uid := sess.UserID(); uid != "" && uid == ownerID {
		return true
	}
	switch v {
	case models.VisibilityPublic, models.VisibilityNotListed:
		return true
	case models.VisibilityInstitutional:
		return sess.IsAuthenticated()
	case models.VisibilityCourse:
		return courseID != nil && sess.InCourse(*courseID)
	case models.VisibilityPrivate:
		return false
	default:
		return false
	}
}

// readerOf turns the session into a listing restriction
func readerOf(sess *session.Session) *repositories.Reader {
	reader := &repositories.Reader{UserID: sess.UserID()}
	if sess != nil {
		for _, c := range sess.Courses {
			reader.CourseIDs = append(reader.CourseIDs, c.ID)
		}
	}
	return reader
}

func requireSession(sess *session.Session) error {
	if !sess.IsAuthenticated() {
		return ErrUnauthorized
	}
	return nil
}

// requireRole fails unless the session holds one of roles
func requireRole(sess *session.Session, resource, action string, roles ...models.UserRole) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	for _, role := range roles {
		if sess.HasRole(role) {
			return nil
		}
	}
	return NewPermissionError(sess.UserID(), "", resource, action, "role "+string(sess.User.Role)+" is not allowed")
}

// pageOf converts page/size into limit/offset with the API defaults
func pageOf(page, size int) (limit, offset, p, s int) {
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	if page < 0 {
		page = 0
	}
	return size, page * size, page, size
}
