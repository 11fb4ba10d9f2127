package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/promptstash/promptstash/internal/common"
	"github.com/promptstash/promptstash/internal/service"
)

// List handles GET /api/v1/prompts
// Query params: page, page_size, category, tags (comma-separated,
// match-any), q (substring over title/content/description), sort
// (recent|created|used|popular|name).
func (h *PromptHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	var tags []string
	if raw := c.Query("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	prompts, total, err := h.svc.ListPrompts(c.Request.Context(), service.ListInput{
		Page:     page,
		PageSize: pageSize,
		Category: c.Query("category"),
		Tags:     tags,
		Query:    c.Query("q"),
		Sort:     c.Query("sort"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessWithMeta(c, prompts, common.NewMeta(page, pageSize, total))
}

// Random handles GET /api/v1/random
func (h *PromptHandler) Random(c *gin.Context) {
	p, err := h.svc.RandomPrompt(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, p)
}
