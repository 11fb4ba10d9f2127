package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promptstash/promptstash/internal/common"
)

// respondError maps service errors to HTTP statuses:
// not found → 404, duplicate slug / update conflict → 409,
// validation → 422, render failure → 400, anything else → 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "prompt not found", err)
	case errors.Is(err, common.ErrVersionNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "version not found", err)
	case errors.Is(err, common.ErrDuplicateSlug):
		common.ErrorResponse(c, http.StatusConflict, "slug already exists", err)
	case errors.Is(err, common.ErrConflict):
		common.ErrorResponse(c, http.StatusConflict, "concurrent update, retry", err)
	case errors.Is(err, common.ErrValidation):
		common.ErrorResponse(c, http.StatusUnprocessableEntity, "invalid input", err)
	case errors.Is(err, common.ErrTemplateRender):
		common.ErrorResponse(c, http.StatusBadRequest, "template render failed", err)
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, "internal error", err)
	}
}
