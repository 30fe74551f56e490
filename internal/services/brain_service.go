package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/models"
	apperrors "github.com/brainloop/brainloop/pkg/errors"
	"github.com/brainloop/brainloop/pkg/logger"
	"github.com/brainloop/brainloop/pkg/metrics"
)

var (
	// ErrBrainNotFound indicates the requested brain does not exist.
	ErrBrainNotFound = apperrors.New("BRAIN_NOT_FOUND", "Brain not found", http.StatusNotFound)
	// ErrBrainExists signals a title or slug collision within the brain's scope.
	ErrBrainExists = apperrors.New("BRAIN_EXISTS", "Brain slug already used in this scope", http.StatusConflict)
	// ErrPrivateBrainHidden signals that the actor's account does not allow
	// working with private brains.
	ErrPrivateBrainHidden = apperrors.New("PRIVATE_BRAIN_HIDDEN", "Private brains are not enabled for this account", http.StatusForbidden)
	// ErrBrainNotPrivate indicates a convert call on an already shared brain.
	ErrBrainNotPrivate = apperrors.New("BRAIN_NOT_PRIVATE", "Brain is already shared", http.StatusConflict)
)

// ShareRecipient identifies a user to share a brain with directly.
type ShareRecipient struct {
	Email string
	Role  string
}

// CreateBrainInput captures new brain metadata.
type CreateBrainInput struct {
	WorkspaceID string
	Title       string
	Slug        string
	IsShare     bool
	IsDefault   bool
	ShareWith   []ShareRecipient
	TeamIDs     []string
}

// UpdateBrainInput describes mutable brain fields.
type UpdateBrainInput struct {
	Title     *string
	Slug      *string
	ShareWith []ShareRecipient
}

// BrainService handles brain lifecycle, slug scoping, visibility rules, and
// direct brain-level sharing.
type BrainService struct {
	db       *gorm.DB
	guard    *AccessGuard
	chats    *ChatMemberService
	audit    *AuditService
	notifier NotificationSink
	log      *zap.Logger
}

// NewBrainService constructs a BrainService instance.
func NewBrainService(db *gorm.DB, guard *AccessGuard, chats *ChatMemberService, audit *AuditService, notifier NotificationSink) (*BrainService, error) {
	if db == nil {
		return nil, errors.New("brain service: db is required")
	}
	if guard == nil {
		return nil, errors.New("brain service: access guard is required")
	}
	if chats == nil {
		return nil, errors.New("brain service: chat member service is required")
	}
	return &BrainService{
		db:       db,
		guard:    guard,
		chats:    chats,
		audit:    audit,
		notifier: notifier,
		log:      logger.WithModule("brains"),
	}, nil
}

// Create registers a new brain, grants the creator an owner grant, and runs
// the sharing and team cascades for shared brains.
func (s *BrainService) Create(ctx context.Context, input CreateBrainInput, actor ActorContext) (*models.Brain, error) {
	ctx = ensureContext(ctx)

	if grant, err := s.guard.WorkspaceGrant(ctx, input.WorkspaceID, actor.UserID); err != nil {
		return nil, err
	} else if grant == nil {
		return nil, apperrors.ErrUnauthorized
	}

	creator, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	if !input.IsShare && !creator.PrivateBrainVisible {
		return nil, ErrPrivateBrainHidden
	}

	companyID, err := resolveCompanyID(actor)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("brain title is required")
	}

	// The general brain is found-or-created by title so concurrent team
	// attachments never produce duplicate general brains in a workspace.
	if title == models.GeneralBrainTitle {
		var existing models.Brain
		err := s.db.WithContext(ctx).
			Preload("Teams").
			Where("workspace_id = ? AND title = ?", input.WorkspaceID, title).
			First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("brain service: find general brain: %w", err)
		}
	}

	brainSlug := makeSlug(input.Slug, title)
	if err := s.ensureSlugAvailable(ctx, input.WorkspaceID, actor.UserID, brainSlug, input.IsShare, ""); err != nil {
		return nil, err
	}

	brain := &models.Brain{
		WorkspaceID: input.WorkspaceID,
		CompanyID:   companyID,
		OwnerID:     creator.ID,
		Title:       title,
		Slug:        brainSlug,
		IsShare:     input.IsShare,
		IsDefault:   input.IsDefault,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(brain).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrBrainExists
			}
			return fmt.Errorf("brain service: create brain: %w", err)
		}
		return upsertBrainGrant(tx, brain, creator, models.RoleOwner, models.DirectOrigin(), actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	if brain.IsShare {
		if len(input.ShareWith) > 0 {
			if _, err := s.ShareWithUsers(ctx, brain.ID, input.ShareWith, actor); err != nil {
				return nil, err
			}
		}
		if len(input.TeamIDs) > 0 {
			if err := s.attachTeams(ctx, brain, input.TeamIDs, actor); err != nil {
				return nil, err
			}
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "brain.create",
		Resource: brain.ID,
		Result:   "success",
		Metadata: map[string]any{"title": title, "slug": brainSlug, "is_share": brain.IsShare},
	})

	return brain, nil
}

// GetByID loads a brain with its team stubs, applying the visibility gate.
func (s *BrainService) GetByID(ctx context.Context, id string, actor ActorContext) (*models.Brain, error) {
	ctx = ensureContext(ctx)

	var brain models.Brain
	err := s.db.WithContext(ctx).Preload("Teams").First(&brain, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBrainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("brain service: load brain: %w", err)
	}

	visible, err := s.guard.CanSeeBrain(ctx, &brain, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.ErrUnauthorized
	}

	return &brain, nil
}

// ListByWorkspace returns the brains the actor can see within a workspace.
func (s *BrainService) ListByWorkspace(ctx context.Context, workspaceID string, actor ActorContext) ([]models.Brain, error) {
	ctx = ensureContext(ctx)

	var grantedIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.BrainGrant{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, actor.UserID).
		Distinct().
		Pluck("brain_id", &grantedIDs).Error; err != nil {
		return nil, fmt.Errorf("brain service: list grants: %w", err)
	}
	if len(grantedIDs) == 0 {
		return []models.Brain{}, nil
	}

	user, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Preload("Teams").
		Where("id IN ?", grantedIDs)
	if !user.PrivateBrainVisible {
		query = query.Where("is_share = ?", true)
	}

	var brains []models.Brain
	if err := query.Order("created_at ASC").Find(&brains).Error; err != nil {
		return nil, fmt.Errorf("brain service: list brains: %w", err)
	}
	return brains, nil
}

// Update modifies brain metadata, re-validates the slug scope, re-applies the
// creator's own grant, and propagates any new sharees into chats.
func (s *BrainService) Update(ctx context.Context, id string, input UpdateBrainInput, actor ActorContext) (*models.Brain, error) {
	ctx = ensureContext(ctx)

	brain, err := s.requireAccess(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if grant, err := s.guard.WorkspaceGrant(ctx, brain.WorkspaceID, actor.UserID); err != nil {
		return nil, err
	} else if grant == nil {
		return nil, apperrors.ErrUnauthorized
	}

	updates := map[string]any{}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" && title != brain.Title {
			updates["title"] = title
		}
	}
	if input.Slug != nil {
		newSlug := makeSlug(*input.Slug, brain.Title)
		if newSlug != brain.Slug {
			if err := s.ensureSlugAvailable(ctx, brain.WorkspaceID, brain.OwnerID, newSlug, brain.IsShare, brain.ID); err != nil {
				return nil, err
			}
			updates["slug"] = newSlug
		}
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(brain).Updates(updates).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil, ErrBrainExists
			}
			return nil, fmt.Errorf("brain service: update brain: %w", err)
		}
	}

	// Idempotent self-share keeps the owner grant alive even if an earlier
	// cascade clobbered it.
	owner, err := s.loadUser(ctx, brain.OwnerID)
	if err == nil {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return upsertBrainGrant(tx, brain, owner, models.RoleOwner, models.DirectOrigin(), actor.UserID)
		})
		if err != nil {
			s.log.Warn("owner grant refresh failed",
				zap.String("brain_id", brain.ID),
				zap.Error(err))
		}
	}

	if len(input.ShareWith) > 0 {
		if _, err := s.ShareWithUsers(ctx, brain.ID, input.ShareWith, actor); err != nil {
			return nil, err
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "brain.update",
		Resource: brain.ID,
		Result:   "success",
		Metadata: updates,
	})

	return s.GetByID(ctx, id, actor)
}

// Delete archives a brain, or removes it permanently along with its grants
// when hard is set. Hard deletion is the only irreversible brain mutation.
func (s *BrainService) Delete(ctx context.Context, id string, hard bool, actor ActorContext) error {
	ctx = ensureContext(ctx)

	brain, err := s.requireAccess(ctx, id, actor)
	if err != nil {
		return err
	}

	if !hard {
		now := time.Now().UTC()
		archivedBy := actor.UserID
		updates := map[string]any{
			"archived_at": now,
			"archived_by": archivedBy,
		}
		if err := s.db.WithContext(ctx).Model(brain).Updates(updates).Error; err != nil {
			return fmt.Errorf("brain service: archive brain: %w", err)
		}
		recordAudit(s.audit, ctx, AuditEntry{Action: "brain.archive", Resource: id, Result: "success"})
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chatIDs []string
		if err := tx.Model(&models.Chat{}).Unscoped().
			Where("brain_id = ?", id).
			Pluck("id", &chatIDs).Error; err != nil {
			return fmt.Errorf("brain service: load chat ids: %w", err)
		}

		if len(chatIDs) > 0 {
			if err := tx.Where("chat_id IN ?", chatIDs).Delete(&models.ChatGrant{}).Error; err != nil {
				return fmt.Errorf("brain service: purge chat grants: %w", err)
			}
			if err := tx.Where("chat_id IN ?", chatIDs).Delete(&models.ChatTeam{}).Error; err != nil {
				return fmt.Errorf("brain service: purge chat teams: %w", err)
			}
			if err := tx.Unscoped().Where("brain_id = ?", id).Delete(&models.Chat{}).Error; err != nil {
				return fmt.Errorf("brain service: purge chats: %w", err)
			}
		}

		if err := tx.Where("brain_id = ?", id).Delete(&models.BrainGrant{}).Error; err != nil {
			return fmt.Errorf("brain service: purge grants: %w", err)
		}
		if err := tx.Where("brain_id = ?", id).Delete(&models.BrainTeam{}).Error; err != nil {
			return fmt.Errorf("brain service: purge team stubs: %w", err)
		}
		if err := tx.Delete(&models.Brain{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("brain service: delete brain: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.GrantWrites.WithLabelValues("brain", "delete").Inc()
	recordAudit(s.audit, ctx, AuditEntry{Action: "brain.delete", Resource: id, Result: "success"})
	return nil
}

// Restore clears the archive marker.
func (s *BrainService) Restore(ctx context.Context, id string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	brain, err := s.requireAccess(ctx, id, actor)
	if err != nil {
		return err
	}
	if !brain.Archived() {
		return nil
	}

	updates := map[string]any{
		"archived_at": nil,
		"archived_by": nil,
	}
	if err := s.db.WithContext(ctx).Model(brain).Updates(updates).Error; err != nil {
		return fmt.Errorf("brain service: restore brain: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{Action: "brain.restore", Resource: id, Result: "success"})
	return nil
}

// ConvertToShared flips a private brain to shared and runs the same sharing
// and team cascades as Create. The conversion is one-directional.
func (s *BrainService) ConvertToShared(ctx context.Context, id string, shareWith []ShareRecipient, teamIDs []string, actor ActorContext) (*models.Brain, error) {
	ctx = ensureContext(ctx)

	var brain models.Brain
	err := s.db.WithContext(ctx).Preload("Teams").First(&brain, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBrainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("brain service: load brain: %w", err)
	}

	if brain.OwnerID != actor.UserID {
		return nil, apperrors.ErrUnauthorized
	}
	if brain.IsShare {
		return nil, ErrBrainNotPrivate
	}

	// A shared brain's slug scope is wider than the private one it leaves,
	// so the slug must be free at the workspace level before converting.
	if err := s.ensureSlugAvailable(ctx, brain.WorkspaceID, brain.OwnerID, brain.Slug, true, brain.ID); err != nil {
		return nil, err
	}

	owner, err := s.loadUser(ctx, brain.OwnerID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&brain).Update("is_share", true).Error; err != nil {
			return fmt.Errorf("brain service: convert brain: %w", err)
		}
		return upsertBrainGrant(tx, &brain, owner, models.RoleOwner, models.DirectOrigin(), actor.UserID)
	})
	if err != nil {
		return nil, err
	}
	brain.IsShare = true

	if len(shareWith) > 0 {
		if _, err := s.ShareWithUsers(ctx, brain.ID, shareWith, actor); err != nil {
			return nil, err
		}
	}
	if len(teamIDs) > 0 {
		if err := s.attachTeams(ctx, &brain, teamIDs, actor); err != nil {
			return nil, err
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{Action: "brain.convert", Resource: id, Result: "success"})
	return &brain, nil
}

// ShareWithUsers creates or updates direct brain grants for the recipients
// and expands chat membership for the newly added users.
func (s *BrainService) ShareWithUsers(ctx context.Context, brainID string, recipients []ShareRecipient, actor ActorContext) ([]models.BrainGrant, error) {
	ctx = ensureContext(ctx)

	brain, err := s.requireAccess(ctx, brainID, actor)
	if err != nil {
		return nil, err
	}

	var existing []models.BrainGrant
	if err := s.db.WithContext(ctx).
		Where("brain_id = ? AND team_id IS NULL", brainID).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("brain service: load direct grants: %w", err)
	}

	existingByEmail := make(map[string]*models.BrainGrant, len(existing))
	for i := range existing {
		existingByEmail[normaliseEmail(existing[i].UserEmail)] = &existing[i]
	}

	var (
		inserted []models.BrainGrant
		newUsers []models.User
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, recipient := range recipients {
			email := normaliseEmail(recipient.Email)
			if email == "" {
				continue
			}

			role := recipient.Role
			if role == "" {
				role = models.RoleMember
			}

			if grant, ok := existingByEmail[email]; ok {
				if grant.Role == role {
					continue
				}
				if err := tx.Model(grant).Update("role", role).Error; err != nil {
					return fmt.Errorf("brain service: update grant: %w", err)
				}
				metrics.GrantWrites.WithLabelValues("brain", "update").Inc()
				continue
			}

			var user models.User
			if err := tx.First(&user, "email = ?", email).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return fmt.Errorf("brain service: load user: %w", err)
			}

			grant := models.BrainGrant{
				BrainID:     brain.ID,
				BrainTitle:  brain.Title,
				BrainSlug:   brain.Slug,
				WorkspaceID: brain.WorkspaceID,
				UserID:      user.ID,
				UserEmail:   user.Email,
				Role:        role,
				InvitedBy:   actor.UserID,
			}
			if err := tx.Create(&grant).Error; err != nil {
				return fmt.Errorf("brain service: create grant: %w", err)
			}

			metrics.GrantWrites.WithLabelValues("brain", "insert").Inc()
			inserted = append(inserted, grant)
			newUsers = append(newUsers, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(newUsers) > 0 {
		if err := s.chats.ExpandBrainToChats(ctx, brain, newUsers, actor.UserID, models.DirectOrigin()); err != nil {
			return nil, err
		}

		userIDs := make([]string, 0, len(newUsers))
		for _, user := range newUsers {
			userIDs = append(userIDs, user.ID)
		}
		notify(s.notifier, NotificationEvent{
			Type:         models.NotificationBrainInvitation,
			UserIDs:      userIDs,
			ActorID:      actor.UserID,
			ResourceID:   brain.ID,
			ResourceName: brain.Title,
		})
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "brain.share",
		Resource: brain.ID,
		Result:   "success",
		Metadata: map[string]any{"added": len(inserted)},
	})

	return inserted, nil
}

// Unshare deletes the direct grant for the user and revokes their derived
// chat membership. Team-derived grants for the same user survive.
func (s *BrainService) Unshare(ctx context.Context, brainID, userID string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	brain, err := s.requireAccess(ctx, brainID, actor)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("brain_id = ? AND user_id = ? AND team_id IS NULL", brainID, userID).
		Delete(&models.BrainGrant{})
	if result.Error != nil {
		return fmt.Errorf("brain service: delete grant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	metrics.GrantWrites.WithLabelValues("brain", "delete").Inc()

	if err := s.chats.Revoke(ctx, brainID, userID); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "brain.unshare",
		Resource: brain.ID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID},
	})
	return nil
}

// FindOrCreateGeneralBrain resolves the workspace's shared general brain,
// creating it lazily on first use.
func (s *BrainService) FindOrCreateGeneralBrain(ctx context.Context, workspace *models.Workspace, actor ActorContext) (*models.Brain, error) {
	ctx = ensureContext(ctx)

	var brain models.Brain
	err := s.db.WithContext(ctx).
		Preload("Teams").
		Where("workspace_id = ? AND title = ?", workspace.ID, models.GeneralBrainTitle).
		First(&brain).Error
	if err == nil {
		return &brain, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("brain service: find general brain: %w", err)
	}

	return s.Create(ctx, CreateBrainInput{
		WorkspaceID: workspace.ID,
		Title:       models.GeneralBrainTitle,
		IsShare:     true,
		IsDefault:   true,
	}, actor)
}

func (s *BrainService) attachTeams(ctx context.Context, brain *models.Brain, teamIDs []string, actor ActorContext) error {
	for _, teamID := range normaliseIDs(teamIDs) {
		var team models.Team
		err := s.db.WithContext(ctx).Preload("Members").First(&team, "id = ?", teamID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		if err != nil {
			return fmt.Errorf("brain service: load team: %w", err)
		}

		if _, err := attachTeamToBrain(ctx, s.db, s.chats, &team, brain, actor); err != nil {
			return err
		}
	}
	return nil
}

// requireAccess loads the brain and applies the full visibility gate before
// any mutation: a grant must exist, and private brains additionally require
// the actor's private-brain-visible flag.
func (s *BrainService) requireAccess(ctx context.Context, brainID string, actor ActorContext) (*models.Brain, error) {
	if !actor.Valid() {
		return nil, apperrors.ErrUnauthorized
	}

	var brain models.Brain
	err := s.db.WithContext(ctx).Preload("Teams").First(&brain, "id = ?", brainID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBrainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("brain service: load brain: %w", err)
	}

	visible, err := s.guard.CanSeeBrain(ctx, &brain, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.ErrUnauthorized
	}
	return &brain, nil
}

// ensureSlugAvailable enforces the scope-dependent slug rule: shared brains
// are unique per (slug, workspace), private brains per (slug, workspace,
// owner). The scopes are independent, so a shared and a private brain may
// carry the same slug.
func (s *BrainService) ensureSlugAvailable(ctx context.Context, workspaceID, ownerID, brainSlug string, isShare bool, excludeID string) error {
	query := s.db.WithContext(ctx).
		Model(&models.Brain{}).
		Where("workspace_id = ? AND slug = ? AND is_share = ?", workspaceID, brainSlug, isShare)
	if !isShare {
		query = query.Where("owner_id = ?", ownerID)
	}
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("brain service: check slug: %w", err)
	}
	if count > 0 {
		return ErrBrainExists
	}
	return nil
}

func (s *BrainService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("brain service: load user: %w", err)
	}
	return &user, nil
}

// upsertBrainGrant writes a brain grant keyed by (brain, user, team),
// refreshing the snapshot columns when the row already exists.
func upsertBrainGrant(tx *gorm.DB, brain *models.Brain, user *models.User, role string, origin models.GrantOrigin, invitedBy string) error {
	teamID := origin.TeamID()

	query := tx.Model(&models.BrainGrant{}).
		Where("brain_id = ? AND user_id = ?", brain.ID, user.ID)
	if teamID == nil {
		query = query.Where("team_id IS NULL")
	} else {
		query = query.Where("team_id = ?", *teamID)
	}

	var existing models.BrainGrant
	err := query.First(&existing).Error
	if err == nil {
		updates := map[string]any{
			"role":        role,
			"brain_title": brain.Title,
			"brain_slug":  brain.Slug,
			"user_email":  user.Email,
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("brain service: refresh grant: %w", err)
		}
		metrics.GrantWrites.WithLabelValues("brain", "update").Inc()
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("brain service: load grant: %w", err)
	}

	grant := models.BrainGrant{
		BrainID:     brain.ID,
		BrainTitle:  brain.Title,
		BrainSlug:   brain.Slug,
		WorkspaceID: brain.WorkspaceID,
		UserID:      user.ID,
		UserEmail:   user.Email,
		Role:        role,
		TeamID:      teamID,
		InvitedBy:   invitedBy,
	}
	if err := tx.Create(&grant).Error; err != nil {
		return fmt.Errorf("brain service: create grant: %w", err)
	}
	metrics.GrantWrites.WithLabelValues("brain", "insert").Inc()
	return nil
}
