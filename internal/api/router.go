package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/app"
	iauth "github.com/brainloop/brainloop/internal/auth"
	"github.com/brainloop/brainloop/internal/handlers"
	"github.com/brainloop/brainloop/internal/middleware"
	"github.com/brainloop/brainloop/internal/realtime"
	"github.com/brainloop/brainloop/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, hub *realtime.Hub, notifier services.NotificationSink) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if hub == nil {
		return nil, fmt.Errorf("realtime hub must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}

	authHandler, err := handlers.NewAuthHandler(db, jwt)
	if err != nil {
		return nil, err
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)
	api.PATCH("/auth/me/visibility", authHandler.SetVisibility)

	workspaceHandler, err := handlers.NewWorkspaceHandler(db, notifier)
	if err != nil {
		return nil, err
	}
	brainHandler, err := handlers.NewBrainHandler(db, notifier)
	if err != nil {
		return nil, err
	}
	chatHandler, err := handlers.NewChatHandler(db, notifier)
	if err != nil {
		return nil, err
	}
	teamHandler, err := handlers.NewTeamHandler(db, notifier)
	if err != nil {
		return nil, err
	}
	notificationHandler, err := handlers.NewNotificationHandler(db, hub)
	if err != nil {
		return nil, err
	}

	registerWorkspaceRoutes(api, workspaceHandler, brainHandler)
	registerBrainRoutes(api, brainHandler, chatHandler)
	registerChatRoutes(api, chatHandler)
	registerTeamRoutes(api, teamHandler)
	registerNotificationRoutes(api, notificationHandler, handlers.NewRealtimeHandler(hub))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
