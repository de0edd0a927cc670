package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/labels"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/services"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/utils"
)

// SessionHandler serves the signed-in user view and the label catalog the
// frontend renders exercises with
type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

type sessionResponse struct {
	User        *models.User       `json:"user"`
	Courses     []models.CourseRef `json:"courses"`
	Preferences map[string]string  `json:"preferences"`
}

// GetSession returns the caller's profile, courses and preferences
// @Router /session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.sessionService.Current(c.Request.Context(), sessionOf(c), tokenOf(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		User:        sess.User,
		Courses:     sess.Courses,
		Preferences: session.PreferenceMap(sess.Preferences),
	})
}

// GetLabels returns the labels for one type/visibility pair, or the whole
// catalog when neither is given. Unknown values yield no label.
// @Param type query string false "Exercise type"
// @Param visibility query string false "Visibility"
// @Router /labels [get]
func (h *SessionHandler) GetLabels(c *gin.Context) {
	t, v := c.Query("type"), c.Query("visibility")
	if t == "" && v == "" {
		c.JSON(http.StatusOK, labels.All())
		return
	}
	c.JSON(http.StatusOK, labels.Project(models.ExerciseType(t), models.Visibility(v)))
}
