package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/services"
	"github.com/brainloop/brainloop/pkg/errors"
	"github.com/brainloop/brainloop/pkg/response"
)

// WorkspaceHandler exposes workspace lifecycle and sharing endpoints.
type WorkspaceHandler struct {
	svc    *services.WorkspaceService
	engine *services.PropagationService
}

func NewWorkspaceHandler(db *gorm.DB, notifier services.NotificationSink) (*WorkspaceHandler, error) {
	deps, err := buildServices(db, notifier)
	if err != nil {
		return nil, err
	}
	return &WorkspaceHandler{svc: deps.workspaces, engine: deps.engine}, nil
}

type createWorkspaceRequest struct {
	Title     string `json:"title" validate:"required,min=2,max=255"`
	Slug      string `json:"slug" validate:"omitempty,max=255"`
	IsDefault bool   `json:"is_default"`
}

type updateWorkspaceRequest struct {
	Title *string `json:"title" validate:"omitempty,min=2,max=255"`
	Slug  *string `json:"slug" validate:"omitempty,max=255"`
}

type directUsersRequest struct {
	Users []struct {
		Email string `json:"email" validate:"required,email"`
		Role  string `json:"role" validate:"omitempty,oneof=owner member viewer"`
	} `json:"users" validate:"required,min=1,dive"`
}

type teamIDsRequest struct {
	TeamIDs []string `json:"team_ids" validate:"required,min=1,dive,uuid4"`
}

// GET /api/workspaces
func (h *WorkspaceHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	workspaces, err := h.svc.List(requestContext(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, workspaces)
}

// GET /api/workspaces/:id
func (h *WorkspaceHandler) Get(c *gin.Context) {
	if _, ok := currentActor(c); !ok {
		return
	}

	workspace, err := h.svc.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, workspace)
}

// POST /api/workspaces
func (h *WorkspaceHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body createWorkspaceRequest
	if !bindAndValidate(c, &body) {
		return
	}

	workspace, err := h.svc.Create(requestContext(c), services.CreateWorkspaceInput{
		Title:     strings.TrimSpace(body.Title),
		Slug:      strings.TrimSpace(body.Slug),
		IsDefault: body.IsDefault,
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, workspace)
}

// PATCH /api/workspaces/:id
func (h *WorkspaceHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body updateWorkspaceRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Title == nil && body.Slug == nil {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	workspace, err := h.svc.Update(requestContext(c), c.Param("id"), services.UpdateWorkspaceInput{
		Title: body.Title,
		Slug:  body.Slug,
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, workspace)
}

// DELETE /api/workspaces/:id
func (h *WorkspaceHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	hard := c.Query("hard") == "true"
	if err := h.svc.Delete(requestContext(c), c.Param("id"), hard, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/workspaces/:id/restore
func (h *WorkspaceHandler) Restore(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.svc.Restore(requestContext(c), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"restored": true})
}

// POST /api/workspaces/:id/users
func (h *WorkspaceHandler) AddUsers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body directUsersRequest
	if !bindAndValidate(c, &body) {
		return
	}

	users := make([]services.DirectUserInput, 0, len(body.Users))
	for _, u := range body.Users {
		users = append(users, services.DirectUserInput{
			Email: strings.TrimSpace(u.Email),
			Role:  u.Role,
		})
	}

	grants, err := h.svc.AddDirectUsers(requestContext(c), c.Param("id"), users, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, grants)
}

// POST /api/workspaces/:id/teams
func (h *WorkspaceHandler) AttachTeams(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body teamIDsRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.engine.AddTeamsToWorkspace(requestContext(c), c.Param("id"), body.TeamIDs, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attached": len(body.TeamIDs)})
}

// DELETE /api/workspaces/:id/teams/:teamID
func (h *WorkspaceHandler) DetachTeam(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.engine.DetachTeamFromWorkspace(requestContext(c), c.Param("id"), c.Param("teamID"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"detached": true})
}
