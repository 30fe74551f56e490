package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/brainloop/brainloop/internal/auth"
	"github.com/brainloop/brainloop/internal/services"
	"github.com/brainloop/brainloop/pkg/crypto"
	"github.com/brainloop/brainloop/pkg/errors"
	"github.com/brainloop/brainloop/pkg/metrics"
	"github.com/brainloop/brainloop/pkg/response"
)

// AuthHandler manages authentication flows (login and identity lookup).
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService) (*AuthHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, audit)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{users: users, jwt: jwt}, nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.GetByEmail(requestContext(c), req.Email)
	if err != nil || !user.IsActive || !crypto.VerifyPassword(user.Password, req.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	actor := services.ActorFromUser(user)
	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:    actor.UserID,
		CompanyID: actor.CompanyID,
		RoleCode:  actor.RoleCode,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: token},
		"user": gin.H{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"company_id": actor.CompanyID,
			"role_code":  user.RoleCode,
		},
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(requestContext(c), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":                    user.ID,
		"username":              user.Username,
		"email":                 user.Email,
		"company_id":            actor.CompanyID,
		"role_code":             user.RoleCode,
		"private_brain_visible": user.PrivateBrainVisible,
	})
}

// PATCH /api/auth/me/visibility
func (h *AuthHandler) SetVisibility(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req visibilityRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.SetPrivateBrainVisible(requestContext(c), actor.UserID, *req.Visible); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"private_brain_visible": *req.Visible})
}
