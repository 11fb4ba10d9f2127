package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/promptstash/promptstash/internal/common"
)

// Stats handles GET /api/v1/stats
func (h *PromptHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, stats)
}

// Categories handles GET /api/v1/categories
func (h *PromptHandler) Categories(c *gin.Context) {
	counts, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, counts)
}

// Tags handles GET /api/v1/tags
func (h *PromptHandler) Tags(c *gin.Context) {
	counts, err := h.svc.Tags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, counts)
}
