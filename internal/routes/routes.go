package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/promptstash/promptstash/internal/config"
	"github.com/promptstash/promptstash/internal/handler"
	"github.com/promptstash/promptstash/internal/middleware"
)

// Setup registers every API route. All /api/v1 routes sit behind the
// API key middleware; health and metrics stay open.
func Setup(router *gin.Engine, h *handler.PromptHandler, cfg *config.Config) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.APIKeyAuth(cfg.Auth.APIKey, cfg.Auth.AllowLocalhostBypass))

	prompts := api.Group("/prompts")
	prompts.GET("", h.List)
	prompts.POST("", h.Create)
	prompts.GET("/:slug", h.Get)
	prompts.PUT("/:slug", h.Update)
	prompts.DELETE("/:slug", h.Delete)
	prompts.POST("/:slug/render", h.Render)
	prompts.POST("/:slug/notes", h.AddNote)
	prompts.GET("/:slug/versions", h.ListVersions)
	prompts.GET("/:slug/versions/:version", h.GetVersion)
	prompts.POST("/:slug/versions/:version/restore", h.RestoreVersion)

	api.GET("/random", h.Random)
	api.GET("/stats", h.Stats)
	api.GET("/categories", h.Categories)
	api.GET("/tags", h.Tags)
}
