package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/slideforge-backend/internal/http/response"
	"github.com/yungbote/slideforge-backend/internal/platform/llm"
	"github.com/yungbote/slideforge-backend/internal/services"
)

type PlanHandler struct {
	svc services.PlanService
}

func NewPlanHandler(svc services.PlanService) *PlanHandler {
	return &PlanHandler{svc: svc}
}

type parsePlanRequest struct {
	Plan       json.RawMessage `json:"plan"`
	SlideCount int             `json:"slideCount"`
}

// POST /api/plans/parse
func (h *PlanHandler) Parse(c *gin.Context) {
	var req parsePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.svc.Parse(planValue(req.Plan), req.SlideCount)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"slides":     out.Slides,
		"source":     out.Source,
		"padded":     out.Padded,
		"truncated":  out.Truncated,
		"validation": out.Validation,
	})
}

// POST /api/plans/draft
func (h *PlanHandler) Draft(c *gin.Context) {
	var req llm.DraftInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	plan, err := h.svc.Draft(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"plan": plan})
}

// planValue hands strings to the parser as text and anything else as the
// decoded JSON value, so objects, arrays and JSON-in-a-string all work.
func planValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
