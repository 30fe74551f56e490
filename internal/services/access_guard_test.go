package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainloop/brainloop/internal/models"
)

func TestAccessGuardWorkspacePredicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workspace := env.createWorkspace(t, "W1")
	guard, err := NewAccessGuard(env.db)
	require.NoError(t, err)

	grant, err := guard.WorkspaceGrant(ctx, workspace.ID, env.owner.ID)
	require.NoError(t, err)
	require.NotNil(t, grant)
	require.Equal(t, models.RoleOwner, grant.Role)

	bob := env.createUser(t, "bob", models.RoleMember)
	grant, err = guard.WorkspaceGrant(ctx, workspace.ID, bob.ID)
	require.NoError(t, err)
	require.Nil(t, grant)

	ok, err := guard.HasWorkspaceAccess(ctx, workspace.ID, env.owner.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = guard.HasWorkspaceAccess(ctx, workspace.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAccessGuardAcceptsTeamDerivedGrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workspace := env.createWorkspace(t, "W1")
	guard, err := NewAccessGuard(env.db)
	require.NoError(t, err)

	bob := env.createUser(t, "bob", models.RoleMember)
	team := env.createTeam(t, "ops", bob)
	require.NoError(t, env.engine.AddTeamsToWorkspace(ctx, workspace.ID, []string{team.ID}, env.actor))

	grant, err := guard.WorkspaceGrant(ctx, workspace.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, grant)
	require.True(t, grant.Origin().IsTeam())

	// The grant reaches down to the general brain as well.
	var general models.Brain
	require.NoError(t, env.db.Where("workspace_id = ? AND title = ?", workspace.ID, models.GeneralBrainTitle).First(&general).Error)
	ok, err := guard.HasBrainAccess(ctx, general.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCanSeeBrainHonoursVisibilityFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workspace := env.createWorkspace(t, "W1")
	guard, err := NewAccessGuard(env.db)
	require.NoError(t, err)

	private, err := env.brains.Create(ctx, CreateBrainInput{
		WorkspaceID: workspace.ID,
		Title:       "Journal",
	}, env.actor)
	require.NoError(t, err)

	visible, err := guard.CanSeeBrain(ctx, private, env.owner.ID)
	require.NoError(t, err)
	require.True(t, visible)

	// Turning the flag off hides private brains even with a grant in place.
	require.NoError(t, env.users.SetPrivateBrainVisible(ctx, env.owner.ID, false))
	visible, err = guard.CanSeeBrain(ctx, private, env.owner.ID)
	require.NoError(t, err)
	require.False(t, visible)

	// Shared brains are unaffected.
	shared := env.createSharedBrain(t, workspace.ID, "Docs")
	visible, err = guard.CanSeeBrain(ctx, &shared, env.owner.ID)
	require.NoError(t, err)
	require.True(t, visible)
}
