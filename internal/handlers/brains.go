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

// BrainHandler exposes brain lifecycle, sharing and team attachment endpoints.
type BrainHandler struct {
	svc    *services.BrainService
	engine *services.PropagationService
}

func NewBrainHandler(db *gorm.DB, notifier services.NotificationSink) (*BrainHandler, error) {
	deps, err := buildServices(db, notifier)
	if err != nil {
		return nil, err
	}
	return &BrainHandler{svc: deps.brains, engine: deps.engine}, nil
}

type shareRecipientRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=owner member viewer"`
}

type createBrainRequest struct {
	WorkspaceID string                  `json:"workspace_id" validate:"required,uuid4"`
	Title       string                  `json:"title" validate:"required,min=1,max=255"`
	Slug        string                  `json:"slug" validate:"omitempty,max=255"`
	IsShare     bool                    `json:"is_share"`
	IsDefault   bool                    `json:"is_default"`
	ShareWith   []shareRecipientRequest `json:"share_with" validate:"omitempty,dive"`
	TeamIDs     []string                `json:"team_ids" validate:"omitempty,dive,uuid4"`
}

type updateBrainRequest struct {
	Title     *string                 `json:"title" validate:"omitempty,min=1,max=255"`
	Slug      *string                 `json:"slug" validate:"omitempty,max=255"`
	ShareWith []shareRecipientRequest `json:"share_with" validate:"omitempty,dive"`
}

type convertBrainRequest struct {
	ShareWith []shareRecipientRequest `json:"share_with" validate:"omitempty,dive"`
	TeamIDs   []string                `json:"team_ids" validate:"omitempty,dive,uuid4"`
}

func mapRecipients(in []shareRecipientRequest) []services.ShareRecipient {
	out := make([]services.ShareRecipient, 0, len(in))
	for _, r := range in {
		out = append(out, services.ShareRecipient{
			Email: strings.TrimSpace(r.Email),
			Role:  r.Role,
		})
	}
	return out
}

// GET /api/workspaces/:id/brains
func (h *BrainHandler) ListByWorkspace(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	brains, err := h.svc.ListByWorkspace(requestContext(c), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, brains)
}

// GET /api/brains/:id
func (h *BrainHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	brain, err := h.svc.GetByID(requestContext(c), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, brain)
}

// POST /api/brains
func (h *BrainHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body createBrainRequest
	if !bindAndValidate(c, &body) {
		return
	}

	brain, err := h.svc.Create(requestContext(c), services.CreateBrainInput{
		WorkspaceID: body.WorkspaceID,
		Title:       strings.TrimSpace(body.Title),
		Slug:        strings.TrimSpace(body.Slug),
		IsShare:     body.IsShare,
		IsDefault:   body.IsDefault,
		ShareWith:   mapRecipients(body.ShareWith),
		TeamIDs:     body.TeamIDs,
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, brain)
}

// PATCH /api/brains/:id
func (h *BrainHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body updateBrainRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Title == nil && body.Slug == nil && len(body.ShareWith) == 0 {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	brain, err := h.svc.Update(requestContext(c), c.Param("id"), services.UpdateBrainInput{
		Title:     body.Title,
		Slug:      body.Slug,
		ShareWith: mapRecipients(body.ShareWith),
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, brain)
}

// DELETE /api/brains/:id
func (h *BrainHandler) Delete(c *gin.Context) {
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

// POST /api/brains/:id/restore
func (h *BrainHandler) Restore(c *gin.Context) {
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

// POST /api/brains/:id/convert
func (h *BrainHandler) Convert(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body convertBrainRequest
	if !bindAndValidate(c, &body) {
		return
	}

	brain, err := h.svc.ConvertToShared(requestContext(c), c.Param("id"), mapRecipients(body.ShareWith), body.TeamIDs, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, brain)
}

// POST /api/brains/:id/share
func (h *BrainHandler) Share(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body struct {
		Recipients []shareRecipientRequest `json:"recipients" validate:"required,min=1,dive"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	grants, err := h.svc.ShareWithUsers(requestContext(c), c.Param("id"), mapRecipients(body.Recipients), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, grants)
}

// DELETE /api/brains/:id/share/:userID
func (h *BrainHandler) Unshare(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.svc.Unshare(requestContext(c), c.Param("id"), c.Param("userID"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unshared": true})
}

// POST /api/brains/:id/teams
func (h *BrainHandler) AttachTeams(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body teamIDsRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.engine.AddTeamsToBrain(requestContext(c), c.Param("id"), body.TeamIDs, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attached": len(body.TeamIDs)})
}

// DELETE /api/brains/:id/teams/:teamID
func (h *BrainHandler) DetachTeam(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.engine.DetachTeamFromBrain(requestContext(c), c.Param("id"), c.Param("teamID"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"detached": true})
}
