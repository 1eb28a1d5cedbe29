package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/slideforge-backend/internal/http/response"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
	"github.com/yungbote/slideforge-backend/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RealtimeHandler{Log: log, Hub: hub}
}

// GET /api/sessions/:id/stream
func (h *RealtimeHandler) SessionStream(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", errMissingID)
		return
	}
	client := h.Hub.NewSSEClient()
	client.Logger = h.Log.With("sse_client_id", client.ID)
	h.Hub.AddChannel(client, realtime.SessionChannel(sessionID))
	h.Log.Debug("SSE stream open", "session_id", sessionID, "client_id", client.ID)

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.Hub.CloseClient(client)
	h.Log.Debug("SSE stream closed", "session_id", sessionID, "client_id", client.ID)
}
