package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sodiqdevpython/quizcore-backend/internal/response"
	"github.com/sodiqdevpython/quizcore-backend/internal/service"
)

// ThemeHandler handles theme catalog endpoints.
type ThemeHandler struct {
	themeService *service.ThemeService
}

// NewThemeHandler creates a new ThemeHandler.
func NewThemeHandler(themeService *service.ThemeService) *ThemeHandler {
	return &ThemeHandler{themeService: themeService}
}

// ListThemes godoc
// GET /api/v1/themes
// Lists themes, optionally filtered by ?subject_id.
func (h *ThemeHandler) ListThemes(c *gin.Context) {
	if raw := c.Query("subject_id"); raw != "" {
		subjectID, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		themes, err := h.themeService.ListBySubject(c.Request.Context(), subjectID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"themes": themes})
		return
	}

	themes, err := h.themeService.GetAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"themes": themes})
}

// GetTheme godoc
// GET /api/v1/themes/:theme_id
func (h *ThemeHandler) GetTheme(c *gin.Context) {
	themeID, err := uuid.Parse(c.Param("theme_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	theme, err := h.themeService.GetByID(c.Request.Context(), themeID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"theme": theme})
}
