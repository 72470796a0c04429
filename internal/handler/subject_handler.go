package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sodiqdevpython/quizcore-backend/internal/response"
	"github.com/sodiqdevpython/quizcore-backend/internal/service"
)

// SubjectHandler handles subject catalog endpoints.
type SubjectHandler struct {
	subjectService *service.SubjectService
	themeService   *service.ThemeService
}

// NewSubjectHandler creates a new SubjectHandler.
func NewSubjectHandler(subjectService *service.SubjectService, themeService *service.ThemeService) *SubjectHandler {
	return &SubjectHandler{
		subjectService: subjectService,
		themeService:   themeService,
	}
}

// ListSubjects godoc
// GET /api/v1/subjects
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.subjectService.GetAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// GetSubject godoc
// GET /api/v1/subjects/:subject_id
// Returns a subject together with its themes.
func (h *SubjectHandler) GetSubject(c *gin.Context) {
	subjectID, err := uuid.Parse(c.Param("subject_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	subject, err := h.subjectService.GetByID(c.Request.Context(), subjectID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	themes, err := h.themeService.ListBySubject(c.Request.Context(), subjectID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"subject": subject,
		"themes":  themes,
	})
}
