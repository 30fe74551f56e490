package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/models"
	"github.com/brainloop/brainloop/internal/services"
	"github.com/brainloop/brainloop/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultTrashRetentionDays = 30
	defaultAuditSpec          = "@daily"
	defaultPurgeSpec          = "@daily"
)

// Cleaner coordinates background maintenance tasks such as pruning stale
// audit logs, purging long soft-deleted workspaces and chats, and clearing
// read notifications.
type Cleaner struct {
	db    *gorm.DB
	audit *services.AuditService
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	enabled        bool
	auditRetention int
	trashRetention int

	auditSchedule string
	purgeSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling and cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.auditRetention = days
		}
	}
}

// WithTrashRetentionDays adjusts how long soft-deleted resources linger before purge.
func WithTrashRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.trashRetention = days
		}
	}
}

// WithAuditSchedule overrides the cron expression for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithPurgeSchedule overrides the cron expression for trash purging.
func WithPurgeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.purgeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:             db,
		audit:          audit,
		now:            time.Now,
		auditRetention: defaultAuditRetentionDays,
		trashRetention: defaultTrashRetentionDays,
		auditSchedule:  defaultAuditSpec,
		purgeSchedule:  defaultPurgeSpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.audit != nil || cleaner.db != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.audit != nil && c.auditRetention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := c.audit.CleanupOlderThan(ctx, c.auditRetention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil && c.trashRetention > 0 {
		if _, err := c.cron.AddFunc(c.purgeSchedule, func() {
			ctx := context.Background()
			cutoff := c.now().AddDate(0, 0, -c.trashRetention)
			if _, err := PurgeTrash(ctx, c.db, cutoff); err != nil {
				c.log.Warn("trash purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.audit != nil && c.auditRetention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.auditRetention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil && c.trashRetention > 0 {
		cutoff := c.now().AddDate(0, 0, -c.trashRetention)
		if _, err := PurgeTrash(ctx, c.db, cutoff); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// TrashPurgeStats captures the number of records removed for each resource type.
type TrashPurgeStats struct {
	Workspaces    int64
	Brains        int64
	Chats         int64
	Grants        int64
	Notifications int64
}

// PurgeTrash permanently removes resources that were soft-deleted before the
// cutoff, together with their grant rows and team stubs, and clears read
// notifications older than the cutoff. Brains inside a purged workspace go
// with it even though they carry no soft-delete marker of their own.
func PurgeTrash(ctx context.Context, db *gorm.DB, cutoff time.Time) (TrashPurgeStats, error) {
	if db == nil {
		return TrashPurgeStats{}, errors.New("purge trash: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := TrashPurgeStats{}

	var workspaceIDs []string
	if err := db.WithContext(ctx).Unscoped().
		Model(&models.Workspace{}).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Pluck("id", &workspaceIDs).Error; err != nil {
		return stats, fmt.Errorf("purge trash: list workspaces: %w", err)
	}

	var brainIDs []string
	if len(workspaceIDs) > 0 {
		if err := db.WithContext(ctx).
			Model(&models.Brain{}).
			Where("workspace_id IN ?", workspaceIDs).
			Pluck("id", &brainIDs).Error; err != nil {
			return stats, fmt.Errorf("purge trash: list brains: %w", err)
		}
	}

	var chatIDs []string
	if err := db.WithContext(ctx).Unscoped().
		Model(&models.Chat{}).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Pluck("id", &chatIDs).Error; err != nil {
		return stats, fmt.Errorf("purge trash: list chats: %w", err)
	}
	if len(brainIDs) > 0 {
		var contained []string
		if err := db.WithContext(ctx).Unscoped().
			Model(&models.Chat{}).
			Where("brain_id IN ?", brainIDs).
			Pluck("id", &contained).Error; err != nil {
			return stats, fmt.Errorf("purge trash: list contained chats: %w", err)
		}
		chatIDs = append(chatIDs, contained...)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(chatIDs) > 0 {
			if err := tx.Where("chat_id IN ?", chatIDs).Delete(&models.ChatGrant{}).Error; err != nil {
				return fmt.Errorf("chat grants: %w", err)
			}
			if err := tx.Where("chat_id IN ?", chatIDs).Delete(&models.ChatTeam{}).Error; err != nil {
				return fmt.Errorf("chat teams: %w", err)
			}
			result := tx.Unscoped().Where("id IN ?", chatIDs).Delete(&models.Chat{})
			if result.Error != nil {
				return fmt.Errorf("chats: %w", result.Error)
			}
			stats.Chats = result.RowsAffected
		}

		if len(brainIDs) > 0 {
			if err := tx.Where("brain_id IN ?", brainIDs).Delete(&models.BrainGrant{}).Error; err != nil {
				return fmt.Errorf("brain grants: %w", err)
			}
			if err := tx.Where("brain_id IN ?", brainIDs).Delete(&models.BrainTeam{}).Error; err != nil {
				return fmt.Errorf("brain teams: %w", err)
			}
			result := tx.Where("id IN ?", brainIDs).Delete(&models.Brain{})
			if result.Error != nil {
				return fmt.Errorf("brains: %w", result.Error)
			}
			stats.Brains = result.RowsAffected
		}

		if len(workspaceIDs) > 0 {
			if err := tx.Where("workspace_id IN ?", workspaceIDs).Delete(&models.WorkspaceGrant{}).Error; err != nil {
				return fmt.Errorf("workspace grants: %w", err)
			}
			if err := tx.Where("workspace_id IN ?", workspaceIDs).Delete(&models.WorkspaceTeam{}).Error; err != nil {
				return fmt.Errorf("workspace teams: %w", err)
			}
			result := tx.Unscoped().Where("id IN ?", workspaceIDs).Delete(&models.Workspace{})
			if result.Error != nil {
				return fmt.Errorf("workspaces: %w", result.Error)
			}
			stats.Workspaces = result.RowsAffected
		}

		// Orphan sweep: grant rows whose parent resource was hard-deleted
		// outside the purge path. Soft-deleted parents still hold their rows.
		orphanSweeps := []string{
			"DELETE FROM workspace_grants WHERE workspace_id NOT IN (SELECT id FROM workspaces)",
			"DELETE FROM workspace_teams WHERE workspace_id NOT IN (SELECT id FROM workspaces)",
			"DELETE FROM brain_grants WHERE brain_id NOT IN (SELECT id FROM brains)",
			"DELETE FROM brain_teams WHERE brain_id NOT IN (SELECT id FROM brains)",
			"DELETE FROM chat_grants WHERE chat_id NOT IN (SELECT id FROM chats)",
			"DELETE FROM chat_teams WHERE chat_id NOT IN (SELECT id FROM chats)",
		}
		for _, sweep := range orphanSweeps {
			result := tx.Exec(sweep)
			if result.Error != nil {
				return fmt.Errorf("orphaned grants: %w", result.Error)
			}
			stats.Grants += result.RowsAffected
		}

		result := tx.Where("is_read = ? AND read_at < ?", true, cutoff).Delete(&models.Notification{})
		if result.Error != nil {
			return fmt.Errorf("notifications: %w", result.Error)
		}
		stats.Notifications = result.RowsAffected

		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("purge trash: %w", err)
	}

	return stats, nil
}
