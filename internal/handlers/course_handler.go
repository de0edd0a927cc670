package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/services"
	"github.com/chalk-edu/chalk/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
	}
}

// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req models.CourseCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Creating course", "name", req.Name)

	course, err := h.courseService.Create(c.Request.Context(), sessionOf(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	course, err := h.courseService.GetByID(c.Request.Context(), sessionOf(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// ListMyCourses lists the courses the caller belongs to
// @Router /courses/mine [get]
func (h *CourseHandler) ListMyCourses(c *gin.Context) {
	courses, err := h.courseService.ListMine(c.Request.Context(), sessionOf(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// AddMember enrolls a student or adds a specialist
// @Router /courses/{id}/members [post]
func (h *CourseHandler) AddMember(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	var req models.CourseMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Adding course member", "course_id", id, "user_id", req.UserID, "role", req.Role)

	if err := h.courseService.AddMember(c.Request.Context(), sessionOf(c), id, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Member added successfully"})
}

// @Router /courses/{id}/members/{user_id} [delete]
func (h *CourseHandler) RemoveMember(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}
	userID := c.Param("user_id")

	h.LogRequest(c, "Removing course member", "course_id", id, "user_id", userID)

	if err := h.courseService.RemoveMember(c.Request.Context(), sessionOf(c), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
