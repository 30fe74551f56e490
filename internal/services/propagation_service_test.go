package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainloop/brainloop/internal/models"
	apperrors "github.com/brainloop/brainloop/pkg/errors"
)

func TestTeamMutationsScopedToCompany(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	team := env.createTeam(t, "platform", bob)

	rivalCompany := models.Company{Name: "Rival"}
	require.NoError(t, env.db.Create(&rivalCompany).Error)
	rival, err := env.users.Create(ctx, CreateUserInput{
		Username:  "eve",
		Email:     "eve@rival.example.com",
		Password:  "s3cret-pass",
		RoleCode:  models.RoleOwner,
		CompanyID: rivalCompany.ID,
	})
	require.NoError(t, err)
	rivalActor := ActorFromUser(rival)

	_, err = env.engine.UpdateTeam(ctx, team.ID, "hijacked", nil, rivalActor)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	err = env.engine.DeleteTeam(ctx, team.ID, rivalActor)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Name and roster survive untouched.
	kept, err := env.teams.GetByID(ctx, team.ID)
	require.NoError(t, err)
	require.Equal(t, "platform", kept.Name)
	require.Len(t, kept.Members, 1)
	require.Equal(t, bob.ID, kept.Members[0].ID)
}

func TestAddTeamsToWorkspaceCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	carol := env.createUser(t, "carol", models.RoleMember)
	team := env.createTeam(t, "T1", bob, carol)
	workspace := env.createWorkspace(t, "W1")

	require.NoError(t, env.engine.AddTeamsToWorkspace(ctx, workspace.ID, []string{team.ID}, env.actor))

	// Stub is unioned into the workspace with the team name snapshotted.
	loaded, err := env.workspaces.GetByID(ctx, workspace.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Teams, 1)
	require.Equal(t, team.ID, loaded.Teams[0].TeamID)
	require.Equal(t, "T1", loaded.Teams[0].TeamName)

	// Both members carry team-tagged workspace grants; the owner's direct
	// grant from workspace creation is untouched.
	grants := env.workspaceGrants(t, workspace.ID)
	require.Len(t, grants, 3)
	ownerGrant := findWorkspaceGrant(grants, env.owner.ID)
	require.NotNil(t, ownerGrant)
	require.False(t, ownerGrant.Origin().IsTeam())
	require.Equal(t, models.RoleOwner, ownerGrant.Role)
	for _, user := range []models.User{bob, carol} {
		grant := findWorkspaceGrant(grants, user.ID)
		require.NotNil(t, grant)
		require.True(t, grant.Origin().IsTeam())
		require.Equal(t, team.ID, *grant.TeamID)
	}

	// The general brain was created lazily and received the brain-level
	// cascade: owner row without team id, member rows tagged with it.
	var general models.Brain
	require.NoError(t, env.db.Where("workspace_id = ? AND title = ?", workspace.ID, models.GeneralBrainTitle).First(&general).Error)
	require.True(t, general.IsShare)

	brainGrants := env.brainGrants(t, general.ID)
	require.Len(t, brainGrants, 3)
	ownerBrainGrant := findBrainGrant(brainGrants, env.owner.ID)
	require.NotNil(t, ownerBrainGrant)
	require.Nil(t, ownerBrainGrant.TeamID)
	require.Equal(t, models.RoleOwner, ownerBrainGrant.Role)
	for _, user := range []models.User{bob, carol} {
		grant := findBrainGrant(brainGrants, user.ID)
		require.NotNil(t, grant)
		require.Equal(t, team.ID, *grant.TeamID)
		require.Equal(t, models.RoleMember, grant.Role)
	}

	// Newly granted members got a workspace invitation; the owner did not.
	events := env.sink.byType(models.NotificationWorkspaceInvitation)
	require.Len(t, events, 1)
	require.ElementsMatch(t, []string{bob.ID, carol.ID}, events[0].UserIDs)
}

func TestAddTeamsToWorkspaceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	team := env.createTeam(t, "ops", bob)
	workspace := env.createWorkspace(t, "W1")

	require.NoError(t, env.engine.AddTeamsToWorkspace(ctx, workspace.ID, []string{team.ID}, env.actor))
	first := env.workspaceGrants(t, workspace.ID)

	env.sink.reset()
	require.NoError(t, env.engine.AddTeamsToWorkspace(ctx, workspace.ID, []string{team.ID}, env.actor))
	second := env.workspaceGrants(t, workspace.ID)

	require.Equal(t, len(first), len(second))

	var stubs int64
	require.NoError(t, env.db.Model(&models.WorkspaceTeam{}).Where("workspace_id = ?", workspace.ID).Count(&stubs).Error)
	require.EqualValues(t, 1, stubs)

	// Nothing new was granted, so no second round of invitations.
	require.Empty(t, env.sink.byType(models.NotificationWorkspaceInvitation))
}

func TestAddTeamsToBrainExpandsChats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	carol := env.createUser(t, "carol", models.RoleMember)
	team := env.createTeam(t, "research", bob, carol)
	workspace := env.createWorkspace(t, "W1")
	brain := env.createSharedBrain(t, workspace.ID, "Docs")

	chat, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: brain.ID, Title: "kickoff"}, env.actor)
	require.NoError(t, err)

	require.NoError(t, env.engine.AddTeamsToBrain(ctx, brain.ID, []string{team.ID}, env.actor))

	// Every member of the team holds a tagged grant on every active chat.
	chatGrants := env.chatGrants(t, chat.ID)
	for _, user := range []models.User{bob, carol} {
		grant := findChatGrant(chatGrants, user.ID)
		require.NotNil(t, grant)
		require.NotNil(t, grant.TeamID)
		require.Equal(t, team.ID, *grant.TeamID)
	}

	// The chat now references the team.
	var links int64
	require.NoError(t, env.db.Model(&models.ChatTeam{}).Where("chat_id = ? AND team_id = ?", chat.ID, team.ID).Count(&links).Error)
	require.EqualValues(t, 1, links)

	// Re-running converges instead of duplicating chat rows.
	before := len(env.chatGrants(t, chat.ID))
	require.NoError(t, env.engine.AddTeamsToBrain(ctx, brain.ID, []string{team.ID}, env.actor))
	require.Len(t, env.chatGrants(t, chat.ID), before)
}

func TestDetachTeamFromWorkspacePreservesDirectGrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	team := env.createTeam(t, "T1", bob)
	workspace := env.createWorkspace(t, "W1")

	// Bob also holds a direct workspace grant, independent of the team.
	_, err := env.workspaces.AddDirectUsers(ctx, workspace.ID, []DirectUserInput{{Email: bob.Email}}, env.actor)
	require.NoError(t, err)

	require.NoError(t, env.engine.AddTeamsToWorkspace(ctx, workspace.ID, []string{team.ID}, env.actor))
	require.NoError(t, env.engine.DetachTeamFromWorkspace(ctx, workspace.ID, team.ID, env.actor))

	grants := env.workspaceGrants(t, workspace.ID)
	var direct, derived int
	for _, grant := range grants {
		if grant.UserID != bob.ID {
			continue
		}
		if grant.Origin().IsTeam() {
			derived++
		} else {
			direct++
		}
	}
	require.Equal(t, 1, direct)
	require.Zero(t, derived)

	// The stub is gone too.
	var stubs int64
	require.NoError(t, env.db.Model(&models.WorkspaceTeam{}).Where("workspace_id = ?", workspace.ID).Count(&stubs).Error)
	require.Zero(t, stubs)
}

func TestDetachTeamFromWorkspaceScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	carol := env.createUser(t, "carol", models.RoleMember)
	team := env.createTeam(t, "T1", bob, carol)
	workspace := env.createWorkspace(t, "W1")

	require.NoError(t, env.engine.AddTeamsToWorkspace(ctx, workspace.ID, []string{team.ID}, env.actor))

	var general models.Brain
	require.NoError(t, env.db.Where("workspace_id = ? AND title = ?", workspace.ID, models.GeneralBrainTitle).First(&general).Error)

	chat, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: general.ID, Title: "standup"}, env.actor)
	require.NoError(t, err)
	require.NotNil(t, findChatGrant(env.chatGrants(t, chat.ID), bob.ID))

	require.NoError(t, env.engine.DetachTeamFromWorkspace(ctx, workspace.ID, team.ID, env.actor))

	// Every team-tagged row across the three layers is gone.
	for _, grant := range env.workspaceGrants(t, workspace.ID) {
		require.False(t, grant.Origin().IsTeam())
	}
	for _, grant := range env.brainGrants(t, general.ID) {
		require.False(t, grant.Origin().IsTeam())
	}
	for _, grant := range env.chatGrants(t, chat.ID) {
		require.False(t, grant.Origin().IsTeam())
	}

	// The owner's untagged grants survive at every layer.
	require.NotNil(t, findWorkspaceGrant(env.workspaceGrants(t, workspace.ID), env.owner.ID))
	ownerBrainGrant := findBrainGrant(env.brainGrants(t, general.ID), env.owner.ID)
	require.NotNil(t, ownerBrainGrant)
	require.Equal(t, models.RoleOwner, ownerBrainGrant.Role)
}

func TestUpdateTeamReconcilesMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	carol := env.createUser(t, "carol", models.RoleMember)
	dave := env.createUser(t, "dave", models.RoleMember)
	team := env.createTeam(t, "T1", bob, carol)
	workspace := env.createWorkspace(t, "W1")

	require.NoError(t, env.engine.AddTeamsToWorkspace(ctx, workspace.ID, []string{team.ID}, env.actor))

	var general models.Brain
	require.NoError(t, env.db.Where("workspace_id = ? AND title = ?", workspace.ID, models.GeneralBrainTitle).First(&general).Error)
	chat, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: general.ID, Title: "planning"}, env.actor)
	require.NoError(t, err)

	// Swap carol out for dave and rename the team.
	updated, err := env.engine.UpdateTeam(ctx, team.ID, "T1-renamed", []string{bob.ID, dave.ID}, env.actor)
	require.NoError(t, err)
	require.Equal(t, "T1-renamed", updated.Name)

	// Stub names were refreshed.
	var stub models.WorkspaceTeam
	require.NoError(t, env.db.Where("workspace_id = ? AND team_id = ?", workspace.ID, team.ID).First(&stub).Error)
	require.Equal(t, "T1-renamed", stub.TeamName)

	// Dave gained team-tagged grants at all three layers.
	require.NotNil(t, findWorkspaceGrant(env.workspaceGrants(t, workspace.ID), dave.ID))
	require.NotNil(t, findBrainGrant(env.brainGrants(t, general.ID), dave.ID))
	require.NotNil(t, findChatGrant(env.chatGrants(t, chat.ID), dave.ID))

	// Carol's team-derived grants were purged at all three layers.
	require.Nil(t, findWorkspaceGrant(env.workspaceGrants(t, workspace.ID), carol.ID))
	require.Nil(t, findBrainGrant(env.brainGrants(t, general.ID), carol.ID))
	require.Nil(t, findChatGrant(env.chatGrants(t, chat.ID), carol.ID))

	// Bob, unchanged in the roster, keeps his grants.
	require.NotNil(t, findWorkspaceGrant(env.workspaceGrants(t, workspace.ID), bob.ID))
}

func TestUpdateTeamRejectsDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	env.createTeam(t, "alpha", bob)
	team := env.createTeam(t, "beta", bob)

	_, err := env.engine.UpdateTeam(ctx, team.ID, "alpha", []string{bob.ID}, env.actor)
	require.ErrorIs(t, err, ErrTeamExists)
}

func TestDeleteTeamPurgesAllLayers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	team := env.createTeam(t, "T1", bob)
	workspace := env.createWorkspace(t, "W1")
	extra := env.createSharedBrain(t, workspace.ID, "Docs")

	require.NoError(t, env.engine.AddTeamsToWorkspace(ctx, workspace.ID, []string{team.ID}, env.actor))
	require.NoError(t, env.engine.AddTeamsToBrain(ctx, extra.ID, []string{team.ID}, env.actor))

	chat, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: extra.ID, Title: "notes"}, env.actor)
	require.NoError(t, err)
	require.NotNil(t, findChatGrant(env.chatGrants(t, chat.ID), bob.ID))

	require.NoError(t, env.engine.DeleteTeam(ctx, team.ID, env.actor))

	_, err = env.teams.GetByID(ctx, team.ID)
	require.ErrorIs(t, err, ErrTeamNotFound)

	var counts int64
	require.NoError(t, env.db.Model(&models.WorkspaceGrant{}).Where("team_id = ?", team.ID).Count(&counts).Error)
	require.Zero(t, counts)
	require.NoError(t, env.db.Model(&models.BrainGrant{}).Where("team_id = ?", team.ID).Count(&counts).Error)
	require.Zero(t, counts)
	require.NoError(t, env.db.Model(&models.ChatGrant{}).Where("team_id = ?", team.ID).Count(&counts).Error)
	require.Zero(t, counts)
	require.NoError(t, env.db.Model(&models.WorkspaceTeam{}).Where("team_id = ?", team.ID).Count(&counts).Error)
	require.Zero(t, counts)
	require.NoError(t, env.db.Model(&models.BrainTeam{}).Where("team_id = ?", team.ID).Count(&counts).Error)
	require.Zero(t, counts)
}

func TestAddTeamsToWorkspaceRequiresAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	team := env.createTeam(t, "T1", bob)
	workspace := env.createWorkspace(t, "W1")

	outsider := env.createUser(t, "mallory", models.RoleMember)
	err := env.engine.AddTeamsToWorkspace(ctx, workspace.ID, []string{team.ID}, ActorFromUser(&outsider))
	require.Error(t, err)

	// Only the creator's grant from workspace creation exists.
	require.Len(t, env.workspaceGrants(t, workspace.ID), 1)
}
