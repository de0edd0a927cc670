package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/services"
	"github.com/chalk-edu/chalk/internal/utils"
	"github.com/chalk-edu/chalk/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RubricHandler struct {
	BaseHandler
	importExportService services.ImportExportService
	validator           *validator.Validator
}

func NewRubricHandler(
	importExportService services.ImportExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *RubricHandler {
	return &RubricHandler{
		BaseHandler:         NewBaseHandler(logger),
		importExportService: importExportService,
		validator:           validator,
	}
}

// CriteriaTemplate returns an empty criteria with the four standard levels
// @Router /rubrics/criteria/template [get]
func (h *RubricHandler) CriteriaTemplate(c *gin.Context) {
	c.JSON(http.StatusOK, models.NewCriteria())
}

// ValidateRubric checks a rubric without storing it
// @Router /rubrics/validate [post]
func (h *RubricHandler) ValidateRubric(c *gin.Context) {
	var rubric models.Rubric
	if err := c.ShouldBindJSON(&rubric); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	if errs := h.validator.GetBusinessValidator().ValidateRubric(&rubric); len(errs) > 0 {
		h.handleServiceError(c, errs)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Rubric is valid", Data: rubric})
}

// ExportRubric answers the rubric as an xlsx download
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /rubrics/export [post]
func (h *RubricHandler) ExportRubric(c *gin.Context) {
	var rubric models.Rubric
	if err := c.ShouldBindJSON(&rubric); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Exporting rubric", "criteria", len(rubric.Criteria))

	data, err := h.importExportService.ExportRubric(c.Request.Context(), &rubric)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="rubric.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ImportRubric reads a rubric back from an uploaded workbook
// @Accept multipart/form-data
// @Router /rubrics/import [post]
func (h *RubricHandler) ImportRubric(c *gin.Context) {
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

	rubric, err := h.importExportService.ImportRubric(c.Request.Context(), file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, rubric)
}
