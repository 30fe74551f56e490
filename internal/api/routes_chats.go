package api

import (
	"github.com/gin-gonic/gin"

	"github.com/brainloop/brainloop/internal/handlers"
)

func registerChatRoutes(api *gin.RouterGroup, handler *handlers.ChatHandler) {
	chats := api.Group("/chats")
	{
		chats.POST("", handler.Create)
		chats.DELETE("/:id", handler.Delete)
		chats.DELETE("/:id/teams/:teamID", handler.DetachTeam)
	}
}
