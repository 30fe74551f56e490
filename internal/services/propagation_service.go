package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/models"
	apperrors "github.com/brainloop/brainloop/pkg/errors"
	"github.com/brainloop/brainloop/pkg/logger"
	"github.com/brainloop/brainloop/pkg/metrics"
)

// PropagationService orchestrates team attach/detach/update events across
// the workspace, brain, and chat grant layers. Every operation follows the
// same shape: diff against current state, upsert what is missing, cascade
// into the next layer down, then notify. Upserts are keyed by the natural
// composite key (resource, user, team) so re-delivery of the same event
// converges instead of duplicating rows, and direct grants (nil team) are
// never touched by team cascades.
type PropagationService struct {
	db       *gorm.DB
	guard    *AccessGuard
	teams    *TeamService
	brains   *BrainService
	chats    *ChatMemberService
	audit    *AuditService
	notifier NotificationSink
	log      *zap.Logger
}

// NewPropagationService constructs the propagation engine.
func NewPropagationService(db *gorm.DB, guard *AccessGuard, teams *TeamService, brains *BrainService, chats *ChatMemberService, audit *AuditService, notifier NotificationSink) (*PropagationService, error) {
	if db == nil {
		return nil, errors.New("propagation service: db is required")
	}
	if guard == nil {
		return nil, errors.New("propagation service: access guard is required")
	}
	if teams == nil || brains == nil || chats == nil {
		return nil, errors.New("propagation service: team, brain, and chat services are required")
	}
	return &PropagationService{
		db:       db,
		guard:    guard,
		teams:    teams,
		brains:   brains,
		chats:    chats,
		audit:    audit,
		notifier: notifier,
		log:      logger.WithModule("propagation"),
	}, nil
}

// AddTeamsToWorkspace attaches teams to a workspace: stubs are unioned into
// the workspace, every member receives a team-tagged workspace grant, the
// workspace's general brain is resolved or created, and the brain-level
// cascade runs against it. Newly granted users get a workspace invitation.
func (s *PropagationService) AddTeamsToWorkspace(ctx context.Context, workspaceID string, teamIDs []string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	if !actor.Valid() {
		return apperrors.ErrUnauthorized
	}
	if grant, err := s.guard.WorkspaceGrant(ctx, workspaceID, actor.UserID); err != nil {
		return err
	} else if grant == nil {
		return apperrors.ErrUnauthorized
	}

	var workspace models.Workspace
	err := s.db.WithContext(ctx).Preload("Teams").First(&workspace, "id = ?", workspaceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrWorkspaceNotFound
	}
	if err != nil {
		return fmt.Errorf("propagation: load workspace: %w", err)
	}

	ids := normaliseIDs(teamIDs)
	if len(ids) == 0 {
		return nil
	}

	var newUserIDs []string
	for _, teamID := range ids {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return err
		}

		if err := s.upsertWorkspaceStub(ctx, &workspace, team); err != nil {
			return err
		}

		inserted, err := s.upsertWorkspaceGrants(ctx, &workspace, team)
		if err != nil {
			return err
		}
		newUserIDs = append(newUserIDs, inserted...)
	}

	general, err := s.brains.FindOrCreateGeneralBrain(ctx, &workspace, actor)
	if err != nil {
		metrics.CascadeOperations.WithLabelValues("workspace_attach", "failure").Inc()
		return err
	}

	for _, teamID := range ids {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return err
		}
		if _, err := attachTeamToBrain(ctx, s.db, s.chats, team, general, actor); err != nil {
			metrics.CascadeOperations.WithLabelValues("workspace_attach", "failure").Inc()
			return err
		}
	}

	if len(newUserIDs) > 0 {
		notify(s.notifier, NotificationEvent{
			Type:         models.NotificationWorkspaceInvitation,
			UserIDs:      normaliseIDs(newUserIDs),
			ActorID:      actor.UserID,
			ResourceID:   workspace.ID,
			ResourceName: workspace.Title,
		})
	}

	metrics.CascadeOperations.WithLabelValues("workspace_attach", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "team.attach_workspace",
		Resource: workspace.ID,
		Result:   "success",
		Metadata: map[string]any{"teams": ids, "new_users": len(newUserIDs)},
	})
	return nil
}

// AddTeamsToBrain attaches teams directly to a shared brain and cascades
// into its chats.
func (s *PropagationService) AddTeamsToBrain(ctx context.Context, brainID string, teamIDs []string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	if !actor.Valid() {
		return apperrors.ErrUnauthorized
	}
	if grant, err := s.guard.BrainGrant(ctx, brainID, actor.UserID); err != nil {
		return err
	} else if grant == nil {
		return apperrors.ErrUnauthorized
	}

	var brain models.Brain
	err := s.db.WithContext(ctx).Preload("Teams").First(&brain, "id = ?", brainID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrBrainNotFound
	}
	if err != nil {
		return fmt.Errorf("propagation: load brain: %w", err)
	}

	var newUserIDs []string
	for _, teamID := range normaliseIDs(teamIDs) {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return err
		}
		inserted, err := attachTeamToBrain(ctx, s.db, s.chats, team, &brain, actor)
		if err != nil {
			metrics.CascadeOperations.WithLabelValues("brain_attach", "failure").Inc()
			return err
		}
		newUserIDs = append(newUserIDs, inserted...)
	}

	if len(newUserIDs) > 0 {
		notify(s.notifier, NotificationEvent{
			Type:         models.NotificationBrainInvitation,
			UserIDs:      normaliseIDs(newUserIDs),
			ActorID:      actor.UserID,
			ResourceID:   brain.ID,
			ResourceName: brain.Title,
		})
	}

	metrics.CascadeOperations.WithLabelValues("brain_attach", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "team.attach_brain",
		Resource: brain.ID,
		Result:   "success",
		Metadata: map[string]any{"teams": normaliseIDs(teamIDs)},
	})
	return nil
}

// UpdateTeam renames a team and replaces its roster, then reconciles every
// resource referencing it: added members are cascaded into the workspace,
// brain, and chat grant layers; removed members have their team-tagged
// grants purged from the same layers. Direct grants are untouched.
func (s *PropagationService) UpdateTeam(ctx context.Context, teamID, newName string, memberIDs []string, actor ActorContext) (*models.Team, error) {
	ctx = ensureContext(ctx)

	if _, err := s.requireTeam(ctx, teamID, actor); err != nil {
		return nil, err
	}

	team, err := s.teams.Rename(ctx, teamID, newName)
	if err != nil {
		return nil, err
	}
	if err := s.refreshStubNames(ctx, team); err != nil {
		return nil, err
	}

	team, added, removed, err := s.teams.ReplaceMembers(ctx, teamID, memberIDs)
	if err != nil {
		return nil, err
	}

	workspaceIDs, brainIDs, err := s.resourcesReferencing(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if len(added) > 0 {
		var addedUsers []models.User
		if err := s.db.WithContext(ctx).Where("id IN ?", added).Find(&addedUsers).Error; err != nil {
			return nil, fmt.Errorf("propagation: load added members: %w", err)
		}

		scoped := &models.Team{Members: addedUsers}
		scoped.ID = team.ID
		scoped.CompanyID = team.CompanyID
		scoped.Name = team.Name

		for _, workspaceID := range workspaceIDs {
			var workspace models.Workspace
			if err := s.db.WithContext(ctx).First(&workspace, "id = ?", workspaceID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return nil, fmt.Errorf("propagation: load workspace: %w", err)
			}
			if _, err := s.upsertWorkspaceGrants(ctx, &workspace, scoped); err != nil {
				return nil, err
			}
		}

		for _, brainID := range brainIDs {
			var brain models.Brain
			if err := s.db.WithContext(ctx).Preload("Teams").First(&brain, "id = ?", brainID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return nil, fmt.Errorf("propagation: load brain: %w", err)
			}
			if _, err := attachTeamToBrain(ctx, s.db, s.chats, scoped, &brain, actor); err != nil {
				return nil, err
			}
		}
	}

	if len(removed) > 0 {
		if err := s.purgeMemberGrants(ctx, teamID, removed, workspaceIDs, brainIDs); err != nil {
			return nil, err
		}
	}

	metrics.CascadeOperations.WithLabelValues("team_update", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "team.update",
		Resource: teamID,
		Result:   "success",
		Metadata: map[string]any{"added": len(added), "removed": len(removed)},
	})
	return team, nil
}

// DeleteTeam purges the team's stubs and grants from every workspace, brain,
// and chat referencing it, then deletes the team itself. The per-resource
// purges run concurrently and are best effort: a failed sub-operation is
// logged and counted but does not abort its siblings or the team deletion.
func (s *PropagationService) DeleteTeam(ctx context.Context, teamID string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	if _, err := s.requireTeam(ctx, teamID, actor); err != nil {
		return err
	}

	workspaceIDs, brainIDs, err := s.resourcesReferencing(ctx, teamID)
	if err != nil {
		return err
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		cascade error
	)
	collect := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		cascade = multierr.Append(cascade, err)
		mu.Unlock()
	}

	for _, workspaceID := range workspaceIDs {
		wg.Add(1)
		go func(workspaceID string) {
			defer wg.Done()
			collect(s.detachWorkspaceLayer(ctx, workspaceID, teamID))
		}(workspaceID)
	}
	for _, brainID := range brainIDs {
		wg.Add(1)
		go func(brainID string) {
			defer wg.Done()
			collect(s.detachBrainLayer(ctx, brainID, teamID))
		}(brainID)
	}
	wg.Wait()

	if cascade != nil {
		metrics.CascadeOperations.WithLabelValues("team_delete", "partial").Inc()
		s.log.Warn("team delete cascade incomplete",
			zap.String("team_id", teamID),
			zap.Error(cascade))
	} else {
		metrics.CascadeOperations.WithLabelValues("team_delete", "success").Inc()
	}

	if err := s.teams.Delete(ctx, teamID); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "team.delete_cascade",
		Resource: teamID,
		Result:   "success",
		Metadata: map[string]any{"workspaces": len(workspaceIDs), "brains": len(brainIDs)},
	})
	return nil
}

// DetachTeamFromWorkspace unlinks a team from one workspace without deleting
// the team: the stub and team-tagged workspace grants go, and the cascade
// continues into the workspace's brains that reference the team.
func (s *PropagationService) DetachTeamFromWorkspace(ctx context.Context, workspaceID, teamID string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	if !actor.Valid() {
		return apperrors.ErrUnauthorized
	}
	if grant, err := s.guard.WorkspaceGrant(ctx, workspaceID, actor.UserID); err != nil {
		return err
	} else if grant == nil {
		return apperrors.ErrUnauthorized
	}

	if err := s.detachWorkspaceLayer(ctx, workspaceID, teamID); err != nil {
		metrics.CascadeOperations.WithLabelValues("workspace_detach", "failure").Inc()
		return err
	}

	var brainIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.BrainTeam{}).
		Joins("JOIN brains ON brains.id = brain_teams.brain_id").
		Where("brain_teams.team_id = ? AND brains.workspace_id = ?", teamID, workspaceID).
		Pluck("brain_teams.brain_id", &brainIDs).Error; err != nil {
		return fmt.Errorf("propagation: load workspace brains: %w", err)
	}
	for _, brainID := range brainIDs {
		if err := s.detachBrainLayer(ctx, brainID, teamID); err != nil {
			metrics.CascadeOperations.WithLabelValues("workspace_detach", "failure").Inc()
			return err
		}
	}

	metrics.CascadeOperations.WithLabelValues("workspace_detach", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "team.detach_workspace",
		Resource: workspaceID,
		Result:   "success",
		Metadata: map[string]any{"team_id": teamID},
	})
	return nil
}

// DetachTeamFromBrain unlinks a team from one brain and revokes the derived
// chat grants.
func (s *PropagationService) DetachTeamFromBrain(ctx context.Context, brainID, teamID string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	if !actor.Valid() {
		return apperrors.ErrUnauthorized
	}
	if grant, err := s.guard.BrainGrant(ctx, brainID, actor.UserID); err != nil {
		return err
	} else if grant == nil {
		return apperrors.ErrUnauthorized
	}

	if err := s.detachBrainLayer(ctx, brainID, teamID); err != nil {
		metrics.CascadeOperations.WithLabelValues("brain_detach", "failure").Inc()
		return err
	}

	metrics.CascadeOperations.WithLabelValues("brain_detach", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "team.detach_brain",
		Resource: brainID,
		Result:   "success",
		Metadata: map[string]any{"team_id": teamID},
	})
	return nil
}

// DetachTeamFromChat unlinks a team from a single chat.
func (s *PropagationService) DetachTeamFromChat(ctx context.Context, chatID, teamID string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	if !actor.Valid() {
		return apperrors.ErrUnauthorized
	}
	if err := s.chats.RemoveTeamFromChat(ctx, chatID, teamID); err != nil {
		metrics.CascadeOperations.WithLabelValues("chat_detach", "failure").Inc()
		return err
	}
	metrics.CascadeOperations.WithLabelValues("chat_detach", "success").Inc()
	return nil
}

// upsertWorkspaceStub unions the team into the workspace's stub list.
// requireTeam loads a team and confirms it belongs to the actor's company.
// Team mutations never cross tenant boundaries.
func (s *PropagationService) requireTeam(ctx context.Context, teamID string, actor ActorContext) (*models.Team, error) {
	companyID, err := resolveCompanyID(actor)
	if err != nil {
		return nil, err
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.CompanyID != companyID {
		return nil, apperrors.ErrUnauthorized
	}
	return team, nil
}

func (s *PropagationService) upsertWorkspaceStub(ctx context.Context, workspace *models.Workspace, team *models.Team) error {
	var stub models.WorkspaceTeam
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND team_id = ?", workspace.ID, team.ID).
		First(&stub).Error
	if err == nil {
		if stub.TeamName != team.Name {
			if err := s.db.WithContext(ctx).Model(&stub).Update("team_name", team.Name).Error; err != nil {
				return fmt.Errorf("propagation: refresh workspace stub: %w", err)
			}
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("propagation: load workspace stub: %w", err)
	}

	stub = models.WorkspaceTeam{WorkspaceID: workspace.ID, TeamID: team.ID, TeamName: team.Name}
	if err := s.db.WithContext(ctx).Create(&stub).Error; err != nil && !isUniqueConstraintError(err) {
		return fmt.Errorf("propagation: create workspace stub: %w", err)
	}
	workspace.Teams = append(workspace.Teams, stub)
	return nil
}

// upsertWorkspaceGrants reconciles the team's members against existing
// team-tagged workspace grants and returns the user ids that were newly
// inserted.
func (s *PropagationService) upsertWorkspaceGrants(ctx context.Context, workspace *models.Workspace, team *models.Team) ([]string, error) {
	var existing []models.WorkspaceGrant
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND team_id = ?", workspace.ID, team.ID).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("propagation: load workspace grants: %w", err)
	}

	existingByUser := make(map[string]*models.WorkspaceGrant, len(existing))
	for i := range existing {
		existingByUser[existing[i].UserID] = &existing[i]
	}

	var inserted []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, member := range team.Members {
			if grant, ok := existingByUser[member.ID]; ok {
				updates := map[string]any{
					"user_email": member.Email,
					"user_name":  member.DisplayName(),
				}
				if err := tx.Model(grant).Updates(updates).Error; err != nil {
					return fmt.Errorf("propagation: refresh workspace grant: %w", err)
				}
				metrics.GrantWrites.WithLabelValues("workspace", "update").Inc()
				continue
			}

			teamID := team.ID
			grant := models.WorkspaceGrant{
				WorkspaceID: workspace.ID,
				CompanyID:   workspace.CompanyID,
				UserID:      member.ID,
				UserEmail:   member.Email,
				UserName:    member.DisplayName(),
				Role:        models.RoleMember,
				TeamID:      &teamID,
			}
			if err := tx.Create(&grant).Error; err != nil {
				if isUniqueConstraintError(err) {
					continue
				}
				return fmt.Errorf("propagation: create workspace grant: %w", err)
			}
			metrics.GrantWrites.WithLabelValues("workspace", "insert").Inc()
			inserted = append(inserted, member.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// refreshStubNames pushes a renamed team's name into the denormalised stub
// rows at every layer.
func (s *PropagationService) refreshStubNames(ctx context.Context, team *models.Team) error {
	if err := s.db.WithContext(ctx).
		Model(&models.WorkspaceTeam{}).
		Where("team_id = ?", team.ID).
		Update("team_name", team.Name).Error; err != nil {
		return fmt.Errorf("propagation: refresh workspace stubs: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Model(&models.BrainTeam{}).
		Where("team_id = ?", team.ID).
		Update("team_name", team.Name).Error; err != nil {
		return fmt.Errorf("propagation: refresh brain stubs: %w", err)
	}
	return nil
}

// resourcesReferencing lists the workspace and brain ids carrying a stub for
// the team.
func (s *PropagationService) resourcesReferencing(ctx context.Context, teamID string) ([]string, []string, error) {
	var workspaceIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.WorkspaceTeam{}).
		Where("team_id = ?", teamID).
		Pluck("workspace_id", &workspaceIDs).Error; err != nil {
		return nil, nil, fmt.Errorf("propagation: list workspace stubs: %w", err)
	}

	var brainIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.BrainTeam{}).
		Where("team_id = ?", teamID).
		Pluck("brain_id", &brainIDs).Error; err != nil {
		return nil, nil, fmt.Errorf("propagation: list brain stubs: %w", err)
	}

	return workspaceIDs, brainIDs, nil
}

// purgeMemberGrants removes team-tagged grants for specific users across all
// three layers, scoped to the resources that reference the team.
func (s *PropagationService) purgeMemberGrants(ctx context.Context, teamID string, userIDs, workspaceIDs, brainIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(workspaceIDs) > 0 {
			if err := tx.Where("workspace_id IN ? AND team_id = ? AND user_id IN ?", workspaceIDs, teamID, userIDs).
				Delete(&models.WorkspaceGrant{}).Error; err != nil {
				return fmt.Errorf("propagation: purge workspace grants: %w", err)
			}
			metrics.GrantWrites.WithLabelValues("workspace", "delete").Inc()
		}
		if len(brainIDs) > 0 {
			if err := tx.Where("brain_id IN ? AND team_id = ? AND user_id IN ?", brainIDs, teamID, userIDs).
				Delete(&models.BrainGrant{}).Error; err != nil {
				return fmt.Errorf("propagation: purge brain grants: %w", err)
			}
			metrics.GrantWrites.WithLabelValues("brain", "delete").Inc()

			if err := tx.Where("brain_id IN ? AND team_id = ? AND user_id IN ?", brainIDs, teamID, userIDs).
				Delete(&models.ChatGrant{}).Error; err != nil {
				return fmt.Errorf("propagation: purge chat grants: %w", err)
			}
			metrics.GrantWrites.WithLabelValues("chat", "delete").Inc()
		}
		return nil
	})
}

// detachWorkspaceLayer removes the team's stub and team-tagged grants from
// one workspace.
func (s *PropagationService) detachWorkspaceLayer(ctx context.Context, workspaceID, teamID string) error {
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND team_id = ?", workspaceID, teamID).
		Delete(&models.WorkspaceGrant{}).Error; err != nil {
		return fmt.Errorf("propagation: delete workspace grants: %w", err)
	}
	metrics.GrantWrites.WithLabelValues("workspace", "delete").Inc()

	if err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND team_id = ?", workspaceID, teamID).
		Delete(&models.WorkspaceTeam{}).Error; err != nil {
		return fmt.Errorf("propagation: delete workspace stub: %w", err)
	}
	return nil
}

// detachBrainLayer removes the team's stub and team-tagged grants from one
// brain and revokes the derived chat grants.
func (s *PropagationService) detachBrainLayer(ctx context.Context, brainID, teamID string) error {
	if err := s.db.WithContext(ctx).
		Where("brain_id = ? AND team_id = ?", brainID, teamID).
		Delete(&models.BrainGrant{}).Error; err != nil {
		return fmt.Errorf("propagation: delete brain grants: %w", err)
	}
	metrics.GrantWrites.WithLabelValues("brain", "delete").Inc()

	if err := s.db.WithContext(ctx).
		Where("brain_id = ? AND team_id = ?", brainID, teamID).
		Delete(&models.BrainTeam{}).Error; err != nil {
		return fmt.Errorf("propagation: delete brain stub: %w", err)
	}

	return s.chats.RemoveTeamGrants(ctx, brainID, teamID)
}

// attachTeamToBrain runs the brain-level team cascade: union the stub,
// upsert a team-tagged brain grant per member, then expand the members into
// the brain's chats on the de-duplicated team path. Returns the ids of the
// members whose brain grant was newly inserted. Shared between the engine
// and BrainService so brain creation with teams and workspace-level team
// attachment converge on identical rows.
func attachTeamToBrain(ctx context.Context, db *gorm.DB, chats *ChatMemberService, team *models.Team, brain *models.Brain, actor ActorContext) ([]string, error) {
	var stub models.BrainTeam
	err := db.WithContext(ctx).
		Where("brain_id = ? AND team_id = ?", brain.ID, team.ID).
		First(&stub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stub = models.BrainTeam{BrainID: brain.ID, TeamID: team.ID, TeamName: team.Name}
		if err := db.WithContext(ctx).Create(&stub).Error; err != nil && !isUniqueConstraintError(err) {
			return nil, fmt.Errorf("propagation: create brain stub: %w", err)
		}
		brain.Teams = append(brain.Teams, stub)
	} else if err != nil {
		return nil, fmt.Errorf("propagation: load brain stub: %w", err)
	} else if stub.TeamName != team.Name {
		if err := db.WithContext(ctx).Model(&stub).Update("team_name", team.Name).Error; err != nil {
			return nil, fmt.Errorf("propagation: refresh brain stub: %w", err)
		}
	}

	var existing []models.BrainGrant
	if err := db.WithContext(ctx).
		Where("brain_id = ? AND team_id = ?", brain.ID, team.ID).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("propagation: load brain grants: %w", err)
	}
	existingByUser := make(map[string]struct{}, len(existing))
	for _, grant := range existing {
		existingByUser[grant.UserID] = struct{}{}
	}

	var inserted []string
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range team.Members {
			member := team.Members[i]
			if _, ok := existingByUser[member.ID]; ok {
				continue
			}
			if err := upsertBrainGrant(tx, brain, &member, models.RoleMember, models.TeamOrigin(team.ID), actor.UserID); err != nil {
				return err
			}
			inserted = append(inserted, member.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := chats.ExpandBrainToChats(ctx, brain, team.Members, actor.UserID, models.TeamOrigin(team.ID)); err != nil {
		return nil, err
	}

	return inserted, nil
}
