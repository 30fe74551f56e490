package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/services"
	"github.com/brainloop/brainloop/pkg/response"
)

// ChatHandler exposes chat lifecycle endpoints.
type ChatHandler struct {
	svc    *services.ChatMemberService
	engine *services.PropagationService
}

func NewChatHandler(db *gorm.DB, notifier services.NotificationSink) (*ChatHandler, error) {
	deps, err := buildServices(db, notifier)
	if err != nil {
		return nil, err
	}
	return &ChatHandler{svc: deps.chats, engine: deps.engine}, nil
}

type createChatRequest struct {
	BrainID string `json:"brain_id" validate:"required,uuid4"`
	Title   string `json:"title" validate:"omitempty,max=255"`
}

// POST /api/chats
func (h *ChatHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body createChatRequest
	if !bindAndValidate(c, &body) {
		return
	}

	chat, err := h.svc.CreateChat(requestContext(c), services.CreateChatInput{
		BrainID: body.BrainID,
		Title:   strings.TrimSpace(body.Title),
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, chat)
}

// GET /api/brains/:id/chats
func (h *ChatHandler) ListByBrain(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	chats, err := h.svc.ListChats(requestContext(c), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, chats)
}

// DELETE /api/chats/:id
func (h *ChatHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteChat(requestContext(c), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// DELETE /api/chats/:id/teams/:teamID
func (h *ChatHandler) DetachTeam(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.engine.DetachTeamFromChat(requestContext(c), c.Param("id"), c.Param("teamID"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"detached": true})
}
