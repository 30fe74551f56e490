package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/brainloop/brainloop/internal/middleware"
	"github.com/brainloop/brainloop/internal/services"
	"github.com/brainloop/brainloop/pkg/errors"
	"github.com/brainloop/brainloop/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentActor extracts the authenticated actor seeded by the auth middleware.
// When absent, a 401 response is written and false is returned.
func currentActor(c *gin.Context) (services.ActorContext, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return services.ActorContext{}, false
	}
	return actor, true
}
