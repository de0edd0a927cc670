package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/draft"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/services"
	"github.com/chalk-edu/chalk/internal/utils"
)

// DraftHandler exposes the test authoring drafts of the caller
type DraftHandler struct {
	BaseHandler
	draftService services.DraftService
}

func NewDraftHandler(draftService services.DraftService, logger utils.Logger) *DraftHandler {
	return &DraftHandler{
		BaseHandler:  NewBaseHandler(logger),
		draftService: draftService,
	}
}

// @Router /drafts [post]
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var req models.DraftCreateRequest
	// an empty body starts an untitled draft
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "Invalid request payload", err)
			return
		}
	}

	view, err := h.draftService.Create(c.Request.Context(), sessionOf(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// @Router /drafts [get]
func (h *DraftHandler) ListDrafts(c *gin.Context) {
	views, err := h.draftService.List(c.Request.Context(), sessionOf(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// @Router /drafts/{id} [get]
func (h *DraftHandler) GetDraft(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	view, err := h.draftService.Get(c.Request.Context(), sessionOf(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// DispatchAction applies one mutation to the draft and returns the result
// @Param action body draft.Request true "Action"
// @Router /drafts/{id}/actions [post]
func (h *DraftHandler) DispatchAction(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	var req draft.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Dispatching draft action", "draft_id", id, "type", req.NormalizedType())

	view, err := h.draftService.Dispatch(c.Request.Context(), sessionOf(c), id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// @Router /drafts/{id} [delete]
func (h *DraftHandler) DiscardDraft(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.draftService.Discard(c.Request.Context(), sessionOf(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitDraft turns the draft into a stored test
// @Router /drafts/{id}/submit [post]
func (h *DraftHandler) SubmitDraft(c *gin.Context) {
	id := h.parseUUIDParam(c, "id")
	if id == "" {
		return
	}

	var req models.DraftSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Submitting draft", "draft_id", id, "visibility", req.Visibility)

	test, err := h.draftService.Submit(c.Request.Context(), sessionOf(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}
