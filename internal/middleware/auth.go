package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brainloop/brainloop/internal/auditctx"
	iauth "github.com/brainloop/brainloop/internal/auth"
	"github.com/brainloop/brainloop/internal/services"
	"github.com/brainloop/brainloop/pkg/errors"
	"github.com/brainloop/brainloop/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxActorKey  = "actor"
	CtxUserIDKey = "userID"
)

// Auth enforces JWT authentication and seeds the actor context every core
// operation requires.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxActorKey, services.ActorContext{
			UserID:    claims.UserID,
			CompanyID: claims.CompanyID,
			RoleCode:  claims.RoleCode,
		})

		// Audit entries written by services pick these up from the request context.
		c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			UserID:    claims.UserID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}))

		c.Next()
	}
}

// ActorFromContext extracts the actor seeded by Auth. The boolean is false
// on unauthenticated requests.
func ActorFromContext(c *gin.Context) (services.ActorContext, bool) {
	value, ok := c.Get(CtxActorKey)
	if !ok {
		return services.ActorContext{}, false
	}
	actor, ok := value.(services.ActorContext)
	return actor, ok && actor.Valid()
}
