package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/http/response"
	"github.com/yungbote/slideforge-backend/internal/services"
)

type SessionHandler struct {
	svc services.SlideGenerationService
}

func NewSessionHandler(svc services.SlideGenerationService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type startRunRequest struct {
	Plan         json.RawMessage       `json:"plan"`
	SlideCount   int                   `json:"slideCount"`
	TemplateData slides.TemplateParams `json:"templateData"`
	Language     string                `json:"language"`
}

// POST /api/sessions/:id/runs
func (h *SessionHandler) StartRun(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", errMissingID)
		return
	}
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	handle, err := h.svc.StartRun(c.Request.Context(), sessionID, services.StartRunInput{
		Plan:         planValue(req.Plan),
		SlideCount:   req.SlideCount,
		TemplateData: req.TemplateData,
		Language:     req.Language,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"runId":      handle.RunID,
		"lessonId":   handle.LessonID,
		"slides":     handle.Slides,
		"source":     handle.Source,
		"validation": handle.Validation,
	})
}

// POST /api/sessions/:id/stop
func (h *SessionHandler) StopRun(c *gin.Context) {
	response.RespondOK(c, gin.H{"stopped": h.svc.StopRun(c.Param("id"))})
}

// GET /api/sessions/:id/state
func (h *SessionHandler) State(c *gin.Context) {
	st, ok := h.svc.State(c.Param("id"))
	if !ok {
		response.RespondError(c, http.StatusNotFound, "session_not_found", errSessionNotFound)
		return
	}
	response.RespondOK(c, st)
}
