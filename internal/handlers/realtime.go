package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/brainloop/brainloop/internal/realtime"
)

// RealtimeHandler upgrades authenticated clients onto the notification stream.
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// GET /api/realtime
func (h *RealtimeHandler) Stream(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	h.hub.Serve(actor.UserID, c.Writer, c.Request)
}
