package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainloop/brainloop/internal/models"
)

func TestAutoMigrateAndSeed(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, AutoMigrateAndSeed(db))

	var company models.Company
	require.NoError(t, db.First(&company, "name = ?", SeedCompanyName).Error)

	var root models.User
	require.NoError(t, db.First(&root, "username = ?", SeedRootUsername).Error)
	require.Equal(t, models.RoleOwner, root.RoleCode)
	require.Equal(t, company.ID, root.CompanyID)

	// Seeding twice must not duplicate the root account.
	require.NoError(t, AutoMigrateAndSeed(db))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", SeedRootUsername).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
