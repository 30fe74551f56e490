package api

import (
	"github.com/gin-gonic/gin"

	"github.com/brainloop/brainloop/internal/handlers"
)

func registerBrainRoutes(api *gin.RouterGroup, handler *handlers.BrainHandler, chats *handlers.ChatHandler) {
	brains := api.Group("/brains")
	{
		brains.GET("/:id", handler.Get)
		brains.POST("", handler.Create)
		brains.PATCH("/:id", handler.Update)
		brains.DELETE("/:id", handler.Delete)
		brains.POST("/:id/restore", handler.Restore)
		brains.POST("/:id/convert", handler.Convert)

		brains.POST("/:id/share", handler.Share)
		brains.DELETE("/:id/share/:userID", handler.Unshare)
		brains.POST("/:id/teams", handler.AttachTeams)
		brains.DELETE("/:id/teams/:teamID", handler.DetachTeam)

		brains.GET("/:id/chats", chats.ListByBrain)
	}
}
