package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/services"
	"github.com/brainloop/brainloop/pkg/response"
)

// TeamHandler exposes team CRUD. Rename, membership changes and deletion go
// through the propagation engine so derived grants stay consistent.
type TeamHandler struct {
	svc    *services.TeamService
	engine *services.PropagationService
}

func NewTeamHandler(db *gorm.DB, notifier services.NotificationSink) (*TeamHandler, error) {
	deps, err := buildServices(db, notifier)
	if err != nil {
		return nil, err
	}
	return &TeamHandler{svc: deps.teams, engine: deps.engine}, nil
}

type createTeamRequest struct {
	Name      string   `json:"name" validate:"required,min=2,max=128"`
	MemberIDs []string `json:"member_ids" validate:"omitempty,dive,uuid4"`
}

type updateTeamRequest struct {
	Name      string   `json:"name" validate:"required,min=2,max=128"`
	MemberIDs []string `json:"member_ids" validate:"omitempty,dive,uuid4"`
}

// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	teams, err := h.svc.List(requestContext(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, teams)
}

// GET /api/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	if _, ok := currentActor(c); !ok {
		return
	}

	team, err := h.svc.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body createTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.svc.Create(requestContext(c), strings.TrimSpace(body.Name), body.MemberIDs, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, team)
}

// PUT /api/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var body updateTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.engine.UpdateTeam(requestContext(c), c.Param("id"), strings.TrimSpace(body.Name), body.MemberIDs, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// DELETE /api/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.engine.DeleteTeam(requestContext(c), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
