package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openModelTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&Company{},
		&User{},
		&Team{},
		&Workspace{},
		&WorkspaceTeam{},
		&Brain{},
		&BrainTeam{},
		&Chat{},
		&ChatTeam{},
		&WorkspaceGrant{},
		&BrainGrant{},
		&ChatGrant{},
		&Notification{},
		&AuditLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestBaseModelGeneratesUUID(t *testing.T) {
	db := openModelTestDB(t)

	company := Company{Name: "Acme"}
	require.NoError(t, db.Create(&company).Error)
	require.NotEmpty(t, company.ID)
}

func TestGrantOriginTagging(t *testing.T) {
	direct := DirectOrigin()
	require.False(t, direct.IsTeam())
	require.Nil(t, direct.TeamID())

	team := TeamOrigin("team-1")
	require.True(t, team.IsTeam())
	require.Equal(t, "team-1", *team.TeamID())

	// Empty team ids collapse to the direct origin rather than tagging a
	// grant with a meaningless team reference.
	require.False(t, TeamOrigin("").IsTeam())

	id := "team-2"
	require.True(t, OriginFromTeamID(&id).IsTeam())
	require.False(t, OriginFromTeamID(nil).IsTeam())
}

func TestGrantOriginRoundTrip(t *testing.T) {
	db := openModelTestDB(t)

	teamID := "5c3c87e1-4a86-4f7e-9f32-b4db74b6e2aa"
	grant := WorkspaceGrant{
		WorkspaceID: "7f0b2f3e-1111-4222-8333-444455556666",
		CompanyID:   "9a9a9a9a-1111-4222-8333-444455556666",
		UserID:      "1b1b1b1b-1111-4222-8333-444455556666",
		UserEmail:   "member@acme.test",
		Role:        RoleMember,
		TeamID:      &teamID,
	}
	require.NoError(t, db.Create(&grant).Error)

	var loaded WorkspaceGrant
	require.NoError(t, db.First(&loaded, "id = ?", grant.ID).Error)
	require.True(t, loaded.Origin().IsTeam())
	require.Equal(t, teamID, *loaded.Origin().TeamID())
}

func TestUserDisplayName(t *testing.T) {
	user := User{Username: "jdoe", Email: "jdoe@acme.test"}
	require.Equal(t, "jdoe", user.DisplayName())

	user.FirstName = "Jordan"
	require.Equal(t, "Jordan", user.DisplayName())

	user.LastName = "Doe"
	require.Equal(t, "Jordan Doe", user.DisplayName())
}
