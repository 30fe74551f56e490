package api

import (
	"github.com/gin-gonic/gin"

	"github.com/brainloop/brainloop/internal/handlers"
)

func registerTeamRoutes(api *gin.RouterGroup, handler *handlers.TeamHandler) {
	teams := api.Group("/teams")
	{
		teams.GET("", handler.List)
		teams.GET("/:id", handler.Get)
		teams.POST("", handler.Create)
		teams.PUT("/:id", handler.Update)
		teams.DELETE("/:id", handler.Delete)
	}
}
