package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainloop/brainloop/internal/models"
)

func TestTeamCreateScopedNameUniqueness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	team, err := env.teams.Create(ctx, "ops", []string{bob.ID}, env.actor)
	require.NoError(t, err)
	require.Equal(t, env.company.ID, team.CompanyID)
	require.Equal(t, []string{bob.ID}, team.MemberIDs())

	_, err = env.teams.Create(ctx, "ops", nil, env.actor)
	require.ErrorIs(t, err, ErrTeamExists)

	// Another company can reuse the name.
	other := models.Company{Name: "Globex"}
	require.NoError(t, env.db.Create(&other).Error)
	outsider, err := env.users.Create(ctx, CreateUserInput{
		Username:  "gwen",
		Email:     "gwen@globex.example",
		Password:  "s3cret-pass",
		RoleCode:  models.RoleOwner,
		CompanyID: other.ID,
	})
	require.NoError(t, err)
	_, err = env.teams.Create(ctx, "ops", nil, ActorFromUser(outsider))
	require.NoError(t, err)
}

func TestTeamCreateRejectsUnknownMembers(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.teams.Create(context.Background(), "ops", []string{"missing-user"}, env.actor)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestTeamReplaceMembersReportsDiff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	carol := env.createUser(t, "carol", models.RoleMember)
	dave := env.createUser(t, "dave", models.RoleMember)
	team := env.createTeam(t, "ops", bob, carol)

	updated, added, removed, err := env.teams.ReplaceMembers(ctx, team.ID, []string{bob.ID, dave.ID})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{dave.ID}, added)
	require.ElementsMatch(t, []string{carol.ID}, removed)
	require.ElementsMatch(t, []string{bob.ID, dave.ID}, updated.MemberIDs())
}

func TestTeamListIsCompanyScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTeam(t, "ops")
	env.createTeam(t, "research")

	other := models.Company{Name: "Globex"}
	require.NoError(t, env.db.Create(&other).Error)
	outsider, err := env.users.Create(ctx, CreateUserInput{
		Username:  "gwen",
		Email:     "gwen@globex.example",
		Password:  "s3cret-pass",
		RoleCode:  models.RoleOwner,
		CompanyID: other.ID,
	})
	require.NoError(t, err)
	_, err = env.teams.Create(ctx, "field", nil, ActorFromUser(outsider))
	require.NoError(t, err)

	teams, err := env.teams.List(ctx, env.actor)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	for _, team := range teams {
		require.Equal(t, env.company.ID, team.CompanyID)
	}
}

func TestTeamDeleteClearsMembershipLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bob := env.createUser(t, "bob", models.RoleMember)
	team := env.createTeam(t, "ops", bob)

	require.NoError(t, env.teams.Delete(ctx, team.ID))

	_, err := env.teams.GetByID(ctx, team.ID)
	require.ErrorIs(t, err, ErrTeamNotFound)

	var count int64
	require.NoError(t, env.db.Table("team_members").Where("team_id = ?", team.ID).Count(&count).Error)
	require.Zero(t, count)
}
