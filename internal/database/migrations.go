package database

import (
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/models"
	"github.com/brainloop/brainloop/pkg/crypto"
)

// Identifiers of seeded records. Deployments replace the root password on
// first login; the constant here only guards test fixtures.
const (
	SeedCompanyName  = "Default Company"
	SeedRootUsername = "root"
	SeedRootEmail    = "root@localhost"
	seedRootPassword = "changeme"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Team{},
		&models.Workspace{},
		&models.WorkspaceTeam{},
		&models.Brain{},
		&models.BrainTeam{},
		&models.Chat{},
		&models.ChatTeam{},
		&models.WorkspaceGrant{},
		&models.BrainGrant{},
		&models.ChatGrant{},
		&models.Notification{},
		&models.AuditLog{},
	)
}

// SeedData populates the default company and its root owner account.
func SeedData(db *gorm.DB) error {
	var company models.Company
	if err := db.Where(models.Company{Name: SeedCompanyName}).
		FirstOrCreate(&company).Error; err != nil {
		return err
	}

	var rootCount int64
	if err := db.Model(&models.User{}).
		Where("username = ?", SeedRootUsername).
		Count(&rootCount).Error; err != nil {
		return err
	}
	if rootCount > 0 {
		return nil
	}

	hashed, err := crypto.HashPassword(seedRootPassword)
	if err != nil {
		return err
	}

	root := models.User{
		Username:            SeedRootUsername,
		Email:               SeedRootEmail,
		Password:            hashed,
		RoleCode:            models.RoleOwner,
		CompanyID:           company.ID,
		PrivateBrainVisible: true,
		IsActive:            true,
	}
	return db.Create(&root).Error
}
