package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/slideforge-backend/internal/http/response"
	"github.com/yungbote/slideforge-backend/internal/services"
)

type LessonHandler struct {
	svc services.SlideGenerationService
}

func NewLessonHandler(svc services.SlideGenerationService) *LessonHandler {
	return &LessonHandler{svc: svc}
}

// GET /api/lessons/:id
func (h *LessonHandler) GetLesson(c *gin.Context) {
	lesson, err := h.svc.Lesson(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// GET /api/lessons/:id/runs
func (h *LessonHandler) ListRuns(c *gin.Context) {
	runs, err := h.svc.Runs(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}
