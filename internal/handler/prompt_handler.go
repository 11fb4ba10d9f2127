package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/promptstash/promptstash/internal/common"
	"github.com/promptstash/promptstash/internal/middleware"
	"github.com/promptstash/promptstash/internal/service"
)

// PromptHandler handles the prompt API endpoints.
type PromptHandler struct {
	svc *service.PromptService
}

// NewPromptHandler creates a PromptHandler.
func NewPromptHandler(svc *service.PromptService) *PromptHandler {
	return &PromptHandler{svc: svc}
}

// CreatePromptRequest is the POST /prompts payload.
type CreatePromptRequest struct {
	Slug         string   `json:"slug"`
	Title        string   `json:"title" binding:"required"`
	Content      string   `json:"content" binding:"required"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	SourceURL    string   `json:"source_url"`
	SuccessNotes string   `json:"success_notes"`
	FailureNotes string   `json:"failure_notes"`
	RelatedSlugs []string `json:"related_slugs"`
}

// UpdatePromptRequest is the PUT /prompts/:slug payload. Absent fields
// are left untouched.
type UpdatePromptRequest struct {
	Title        *string   `json:"title"`
	Content      *string   `json:"content"`
	Description  *string   `json:"description"`
	Category     *string   `json:"category"`
	Tags         *[]string `json:"tags"`
	SourceURL    *string   `json:"source_url"`
	SuccessNotes *string   `json:"success_notes"`
	FailureNotes *string   `json:"failure_notes"`
	RelatedSlugs *[]string `json:"related_slugs"`
	ChangeNote   string    `json:"change_note"`
}

// Create handles POST /api/v1/prompts
func (h *PromptHandler) Create(c *gin.Context) {
	var req CreatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	p, err := h.svc.CreatePrompt(c.Request.Context(), service.CreateInput{
		Slug:         req.Slug,
		Title:        req.Title,
		Content:      req.Content,
		Description:  req.Description,
		Category:     req.Category,
		Tags:         req.Tags,
		SourceURL:    req.SourceURL,
		SuccessNotes: req.SuccessNotes,
		FailureNotes: req.FailureNotes,
		RelatedSlugs: req.RelatedSlugs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	common.Created(c, p)
}

// Get handles GET /api/v1/prompts/:slug
// ?increment_usage=false fetches without counting a use.
func (h *PromptHandler) Get(c *gin.Context) {
	increment := c.DefaultQuery("increment_usage", "true") != "false"

	p, err := h.svc.GetPrompt(c.Request.Context(), c.Param("slug"), increment)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, p)
}

// Update handles PUT /api/v1/prompts/:slug
func (h *PromptHandler) Update(c *gin.Context) {
	var req UpdatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	p, err := h.svc.UpdatePrompt(c.Request.Context(), c.Param("slug"), service.UpdateInput{
		Title:        req.Title,
		Content:      req.Content,
		Description:  req.Description,
		Category:     req.Category,
		Tags:         req.Tags,
		SourceURL:    req.SourceURL,
		SuccessNotes: req.SuccessNotes,
		FailureNotes: req.FailureNotes,
		RelatedSlugs: req.RelatedSlugs,
		ChangeNote:   req.ChangeNote,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, p)
}

// Delete handles DELETE /api/v1/prompts/:slug
func (h *PromptHandler) Delete(c *gin.Context) {
	if err := h.svc.DeletePrompt(c.Request.Context(), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	common.NoContent(c)
}

// RenderRequest is the POST /prompts/:slug/render payload.
type RenderRequest struct {
	Variables map[string]interface{} `json:"variables"`
}

// RenderResponse is the render result.
type RenderResponse struct {
	Content       string                 `json:"content"`
	Slug          string                 `json:"slug"`
	IsTemplate    bool                   `json:"is_template"`
	VariablesUsed map[string]interface{} `json:"variables_used"`
}

// Render handles POST /api/v1/prompts/:slug/render
// An empty body renders with no bindings.
func (h *PromptHandler) Render(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Variables == nil {
		req.Variables = map[string]interface{}{}
	}

	rendered, p, err := h.svc.RenderPrompt(c.Request.Context(), c.Param("slug"), req.Variables)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.CountRender()
	common.Success(c, RenderResponse{
		Content:       rendered,
		Slug:          p.Slug,
		IsTemplate:    p.IsTemplate,
		VariablesUsed: req.Variables,
	})
}

// NoteRequest is the POST /prompts/:slug/notes payload.
type NoteRequest struct {
	Kind string `json:"kind" binding:"required"`
	Text string `json:"text" binding:"required"`
}

// AddNote handles POST /api/v1/prompts/:slug/notes
func (h *PromptHandler) AddNote(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	p, err := h.svc.AddNote(c.Request.Context(), c.Param("slug"), req.Kind, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, p)
}

// ListVersions handles GET /api/v1/prompts/:slug/versions
func (h *PromptHandler) ListVersions(c *gin.Context) {
	versions, err := h.svc.ListVersions(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, versions)
}

// GetVersion handles GET /api/v1/prompts/:slug/versions/:version
func (h *PromptHandler) GetVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid version number", err)
		return
	}

	v, err := h.svc.GetVersion(c.Request.Context(), c.Param("slug"), version)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, v)
}

// RestoreVersion handles POST /api/v1/prompts/:slug/versions/:version/restore
func (h *PromptHandler) RestoreVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid version number", err)
		return
	}

	p, err := h.svc.RestoreVersion(c.Request.Context(), c.Param("slug"), version)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, p)
}
