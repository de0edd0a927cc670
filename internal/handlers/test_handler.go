package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/services"
	"github.com/chalk-edu/chalk/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
}

func NewTestHandler(testService services.TestService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
	}
}

// CreateTest stores a test owned by the calling specialist
// @Router /tests [post]
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req models.TestCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Creating test", "title", req.Title, "groups", len(req.Groups))

	test, err := h.testService.Create(c.Request.Context(), sessionOf(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// @Router /tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), sessionOf(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// ListTests lists readable tests. An unknown visibility answers 400.
// @Param title query string false "Title search"
// @Param visibility query string false "Visibility"
// @Router /tests [get]
func (h *TestHandler) ListTests(c *gin.Context) {
	params := models.ListTestsParams{
		Title:        c.Query("title"),
		SpecialistID: queryString(c, "specialist_id"),
		CourseID:     queryString(c, "course_id"),
		Visibility:   c.Query("visibility"),
		SortBy:       c.Query("sort_by"),
		SortDir:      c.Query("sort_dir"),
	}
	var err error
	if params.Page, err = queryInt(c, "page", 0); err != nil {
		h.badRequest(c, "Invalid page", err)
		return
	}
	if params.Size, err = queryInt(c, "size", 20); err != nil {
		h.badRequest(c, "Invalid size", err)
		return
	}

	h.LogRequest(c, "Listing tests", "title", params.Title, "visibility", params.Visibility)

	page, err := h.testService.List(c.Request.Context(), sessionOf(c), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// @Router /tests/{id} [delete]
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting test", "test_id", id)

	if err := h.testService.Delete(c.Request.Context(), sessionOf(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
