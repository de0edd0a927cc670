package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/labels"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/services"
	"github.com/chalk-edu/chalk/internal/utils"
)

// maxUploadSize bounds xlsx uploads
const maxUploadSize = 10 << 20

type ExerciseHandler struct {
	BaseHandler
	exerciseService     services.ExerciseService
	importExportService services.ImportExportService
}

func NewExerciseHandler(
	exerciseService services.ExerciseService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *ExerciseHandler {
	return &ExerciseHandler{
		BaseHandler:         NewBaseHandler(logger),
		exerciseService:     exerciseService,
		importExportService: importExportService,
	}
}

// CreateExercise stores a new exercise owned by the caller
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req models.ExerciseCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Creating exercise", "type", req.Type, "visibility", req.Visibility)

	exercise, err := h.exerciseService.Create(c.Request.Context(), sessionOf(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exercise)
}

// GetExercise returns one exercise with its labels
// @Router /exercises/{id} [get]
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Getting exercise", "exercise_id", id)

	exercise, err := h.exerciseService.GetByID(c.Request.Context(), sessionOf(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exercise)
}

// ListExercises lists the exercises the caller may read
// @Param search query string false "Title search"
// @Param type query string false "Exercise type"
// @Param visibility query string false "Visibility"
// @Param course_id query string false "Course"
// @Param specialist_id query string false "Owner"
// @Param tags query string false "Comma separated tags"
// @Router /exercises [get]
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	params, ok := h.parseExerciseFilters(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing exercises", "search", params.Search, "page", params.Page)

	page, err := h.exerciseService.List(c.Request.Context(), sessionOf(c), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// DeleteExercise removes an exercise. Only its owner may.
// @Router /exercises/{id} [delete]
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting exercise", "exercise_id", id)

	if err := h.exerciseService.Delete(c.Request.Context(), sessionOf(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ImportExercises creates exercises from the Exercises sheet of an uploaded
// workbook, all or nothing
// @Accept multipart/form-data
// @Param file formData file true "xlsx workbook"
// @Router /exercises/import [post]
func (h *ExerciseHandler) ImportExercises(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "Missing workbook upload", err)
		return
	}
	file, err := header.Open()
	if err != nil {
		h.badRequest(c, "Unreadable workbook upload", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing exercises", "filename", header.Filename, "size", header.Size)

	exercises, err := h.importExportService.ImportExercises(c.Request.Context(), sessionOf(c), file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	views := make([]models.ExerciseView, 0, len(exercises))
	for _, e := range exercises {
		views = append(views, labels.View(e))
	}
	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Exercises imported successfully",
		Data:    views,
	})
}

func (h *ExerciseHandler) parseExerciseFilters(c *gin.Context) (models.ListExercisesParams, bool) {
	params := models.ListExercisesParams{
		Search:       c.Query("search"),
		Type:         models.ExerciseType(c.Query("type")),
		Visibility:   models.Visibility(c.Query("visibility")),
		CourseID:     queryString(c, "course_id"),
		SpecialistID: queryString(c, "specialist_id"),
		Tags:         queryList(c, "tags"),
		SortBy:       c.Query("sort_by"),
		SortDir:      c.Query("sort_dir"),
	}

	var err error
	if params.Page, err = queryInt(c, "page", 0); err != nil {
		h.badRequest(c, "Invalid page", err)
		return params, false
	}
	if params.Size, err = queryInt(c, "size", 20); err != nil {
		h.badRequest(c, "Invalid size", err)
		return params, false
	}
	return params, true
}
