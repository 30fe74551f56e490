package handlers

import (
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/services"
)

// serviceSet bundles the domain services a handler constructor needs. Handlers
// share stateless service instances built over the same database handle.
type serviceSet struct {
	guard      *services.AccessGuard
	audit      *services.AuditService
	chats      *services.ChatMemberService
	brains     *services.BrainService
	teams      *services.TeamService
	workspaces *services.WorkspaceService
	engine     *services.PropagationService
}

func buildServices(db *gorm.DB, notifier services.NotificationSink) (*serviceSet, error) {
	guard, err := services.NewAccessGuard(db)
	if err != nil {
		return nil, err
	}
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	chats, err := services.NewChatMemberService(db, guard, audit, notifier)
	if err != nil {
		return nil, err
	}
	brains, err := services.NewBrainService(db, guard, chats, audit, notifier)
	if err != nil {
		return nil, err
	}
	teams, err := services.NewTeamService(db, audit)
	if err != nil {
		return nil, err
	}
	workspaces, err := services.NewWorkspaceService(db, guard, audit, notifier)
	if err != nil {
		return nil, err
	}
	engine, err := services.NewPropagationService(db, guard, teams, brains, chats, audit, notifier)
	if err != nil {
		return nil, err
	}

	return &serviceSet{
		guard:      guard,
		audit:      audit,
		chats:      chats,
		brains:     brains,
		teams:      teams,
		workspaces: workspaces,
		engine:     engine,
	}, nil
}
