package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/services"
	"github.com/chalk-edu/chalk/internal/utils"
)

// ResolutionHandler serves student answers to tests
type ResolutionHandler struct {
	BaseHandler
	resolutionService services.ResolutionService
}

func NewResolutionHandler(resolutionService services.ResolutionService, logger utils.Logger) *ResolutionHandler {
	return &ResolutionHandler{
		BaseHandler:       NewBaseHandler(logger),
		resolutionService: resolutionService,
	}
}

// CreateResolution stores the caller's answers, submitted or in progress
// @Router /resolutions [post]
func (h *ResolutionHandler) CreateResolution(c *gin.Context) {
	var req models.ResolutionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Creating resolution", "test_id", req.TestID, "submit", req.Submit)

	resolution, err := h.resolutionService.Create(c.Request.Context(), sessionOf(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resolution)
}

// ListByTest lists the resolutions of a test. Students only see their own.
// @Router /tests/{id}/resolutions [get]
func (h *ResolutionHandler) ListByTest(c *gin.Context) {
	testID := h.parseUUIDParam(c, "id")
	if testID == "" {
		return
	}
	page, err := queryInt(c, "page", 0)
	if err != nil {
		h.badRequest(c, "Invalid page", err)
		return
	}
	size, err := queryInt(c, "size", 20)
	if err != nil {
		h.badRequest(c, "Invalid size", err)
		return
	}

	resolutions, err := h.resolutionService.ListByTest(c.Request.Context(), sessionOf(c), testID, page, size)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolutions)
}

// CountForStudent counts the submissions of student_id, the caller by default
// @Router /tests/{id}/resolutions/count [get]
func (h *ResolutionHandler) CountForStudent(c *gin.Context) {
	testID := h.parseUUIDParam(c, "id")
	if testID == "" {
		return
	}

	count, err := h.resolutionService.Count(c.Request.Context(), sessionOf(c), testID, studentParam(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, count)
}

// LastForStudent returns the resolution with the highest submission number
// @Router /tests/{id}/resolutions/last [get]
func (h *ResolutionHandler) LastForStudent(c *gin.Context) {
	testID := h.parseUUIDParam(c, "id")
	if testID == "" {
		return
	}

	resolution, err := h.resolutionService.Last(c.Request.Context(), sessionOf(c), testID, studentParam(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolution)
}

func studentParam(c *gin.Context) string {
	if id := c.Query("student_id"); id != "" {
		return id
	}
	return sessionOf(c).UserID()
}
