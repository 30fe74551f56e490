package api

import (
	"github.com/gin-gonic/gin"

	"github.com/brainloop/brainloop/internal/handlers"
)

func registerWorkspaceRoutes(api *gin.RouterGroup, handler *handlers.WorkspaceHandler, brains *handlers.BrainHandler) {
	workspaces := api.Group("/workspaces")
	{
		workspaces.GET("", handler.List)
		workspaces.GET("/:id", handler.Get)
		workspaces.POST("", handler.Create)
		workspaces.PATCH("/:id", handler.Update)
		workspaces.DELETE("/:id", handler.Delete)
		workspaces.POST("/:id/restore", handler.Restore)

		workspaces.POST("/:id/users", handler.AddUsers)
		workspaces.POST("/:id/teams", handler.AttachTeams)
		workspaces.DELETE("/:id/teams/:teamID", handler.DetachTeam)

		workspaces.GET("/:id/brains", brains.ListByWorkspace)
	}
}
