package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/models"
	apperrors "github.com/brainloop/brainloop/pkg/errors"
	"github.com/brainloop/brainloop/pkg/metrics"
)

var (
	// ErrWorkspaceNotFound indicates the requested workspace does not exist.
	ErrWorkspaceNotFound = apperrors.New("WORKSPACE_NOT_FOUND", "Workspace not found", http.StatusNotFound)
	// ErrWorkspaceExists signals a slug collision within the company.
	ErrWorkspaceExists = apperrors.New("WORKSPACE_EXISTS", "Workspace slug already used in this company", http.StatusConflict)
)

// CreateWorkspaceInput captures new workspace metadata.
type CreateWorkspaceInput struct {
	Title     string
	Slug      string
	IsDefault bool
}

// UpdateWorkspaceInput describes mutable workspace fields.
type UpdateWorkspaceInput struct {
	Title *string
	Slug  *string
}

// DirectUserInput identifies a user to share a workspace with directly.
type DirectUserInput struct {
	Email string
	Role  string
}

// WorkspaceService handles workspace lifecycle and direct user membership.
type WorkspaceService struct {
	db       *gorm.DB
	guard    *AccessGuard
	audit    *AuditService
	notifier NotificationSink
}

// NewWorkspaceService constructs a WorkspaceService instance.
func NewWorkspaceService(db *gorm.DB, guard *AccessGuard, audit *AuditService, notifier NotificationSink) (*WorkspaceService, error) {
	if db == nil {
		return nil, errors.New("workspace service: db is required")
	}
	if guard == nil {
		return nil, errors.New("workspace service: access guard is required")
	}
	return &WorkspaceService{db: db, guard: guard, audit: audit, notifier: notifier}, nil
}

// Create registers a new workspace and grants the creator an owner grant.
func (s *WorkspaceService) Create(ctx context.Context, input CreateWorkspaceInput, actor ActorContext) (*models.Workspace, error) {
	ctx = ensureContext(ctx)

	companyID, err := resolveCompanyID(actor)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("workspace title is required")
	}

	wsSlug := makeSlug(input.Slug, title)
	if err := s.ensureSlugAvailable(ctx, companyID, wsSlug, ""); err != nil {
		return nil, err
	}

	workspace := &models.Workspace{
		CompanyID: companyID,
		Title:     title,
		Slug:      wsSlug,
		IsDefault: input.IsDefault,
	}

	var creator models.User
	if err := s.db.WithContext(ctx).First(&creator, "id = ?", actor.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("workspace service: load creator: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(workspace).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrWorkspaceExists
			}
			return fmt.Errorf("workspace service: create workspace: %w", err)
		}

		grant := models.WorkspaceGrant{
			WorkspaceID: workspace.ID,
			CompanyID:   companyID,
			UserID:      creator.ID,
			UserEmail:   creator.Email,
			UserName:    creator.DisplayName(),
			Role:        models.RoleOwner,
		}
		if err := tx.Create(&grant).Error; err != nil {
			return fmt.Errorf("workspace service: create owner grant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.GrantWrites.WithLabelValues("workspace", "insert").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "workspace.create",
		Resource: workspace.ID,
		Result:   "success",
		Metadata: map[string]any{"title": title, "slug": wsSlug},
	})

	return workspace, nil
}

// GetByID loads a workspace with its team stubs.
func (s *WorkspaceService) GetByID(ctx context.Context, id string) (*models.Workspace, error) {
	ctx = ensureContext(ctx)

	var workspace models.Workspace
	err := s.db.WithContext(ctx).
		Preload("Teams").
		First(&workspace, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("workspace service: load workspace: %w", err)
	}
	return &workspace, nil
}

// List returns the workspaces the user holds a grant for within the company.
func (s *WorkspaceService) List(ctx context.Context, actor ActorContext) ([]models.Workspace, error) {
	ctx = ensureContext(ctx)

	companyID, err := resolveCompanyID(actor)
	if err != nil {
		return nil, err
	}

	var grantIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.WorkspaceGrant{}).
		Where("company_id = ? AND user_id = ?", companyID, actor.UserID).
		Distinct().
		Pluck("workspace_id", &grantIDs).Error; err != nil {
		return nil, fmt.Errorf("workspace service: list grants: %w", err)
	}
	if len(grantIDs) == 0 {
		return []models.Workspace{}, nil
	}

	var workspaces []models.Workspace
	if err := s.db.WithContext(ctx).
		Preload("Teams").
		Where("id IN ?", grantIDs).
		Order("created_at ASC").
		Find(&workspaces).Error; err != nil {
		return nil, fmt.Errorf("workspace service: list workspaces: %w", err)
	}
	return workspaces, nil
}

// Update modifies workspace metadata after re-checking access and slug scope.
func (s *WorkspaceService) Update(ctx context.Context, id string, input UpdateWorkspaceInput, actor ActorContext) (*models.Workspace, error) {
	ctx = ensureContext(ctx)

	workspace, err := s.requireAccess(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" && title != workspace.Title {
			updates["title"] = title
		}
	}
	if input.Slug != nil {
		newSlug := makeSlug(*input.Slug, workspace.Title)
		if newSlug != workspace.Slug {
			if err := s.ensureSlugAvailable(ctx, workspace.CompanyID, newSlug, workspace.ID); err != nil {
				return nil, err
			}
			updates["slug"] = newSlug
		}
	}

	if len(updates) == 0 {
		return workspace, nil
	}

	if err := s.db.WithContext(ctx).Model(workspace).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrWorkspaceExists
		}
		return nil, fmt.Errorf("workspace service: update workspace: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "workspace.update",
		Resource: workspace.ID,
		Result:   "success",
		Metadata: updates,
	})

	return s.GetByID(ctx, id)
}

// Delete soft-deletes a workspace, or removes it permanently along with its
// grants and team stubs when hard is set.
func (s *WorkspaceService) Delete(ctx context.Context, id string, hard bool, actor ActorContext) error {
	ctx = ensureContext(ctx)

	workspace, err := s.requireAccess(ctx, id, actor)
	if err != nil {
		return err
	}

	if !hard {
		if err := s.db.WithContext(ctx).Delete(workspace).Error; err != nil {
			return fmt.Errorf("workspace service: soft delete workspace: %w", err)
		}
		recordAudit(s.audit, ctx, AuditEntry{Action: "workspace.archive", Resource: id, Result: "success"})
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkspaceGrant{}).Error; err != nil {
			return fmt.Errorf("workspace service: purge grants: %w", err)
		}
		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkspaceTeam{}).Error; err != nil {
			return fmt.Errorf("workspace service: purge team stubs: %w", err)
		}
		if err := tx.Unscoped().Delete(&models.Workspace{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("workspace service: delete workspace: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.GrantWrites.WithLabelValues("workspace", "delete").Inc()
	recordAudit(s.audit, ctx, AuditEntry{Action: "workspace.delete", Resource: id, Result: "success"})
	return nil
}

// Restore clears the soft-delete marker.
func (s *WorkspaceService) Restore(ctx context.Context, id string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	if grant, err := s.guard.WorkspaceGrant(ctx, id, actor.UserID); err != nil {
		return err
	} else if grant == nil {
		return apperrors.ErrUnauthorized
	}

	result := s.db.WithContext(ctx).
		Unscoped().
		Model(&models.Workspace{}).
		Where("id = ?", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return fmt.Errorf("workspace service: restore workspace: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWorkspaceNotFound
	}

	recordAudit(s.audit, ctx, AuditEntry{Action: "workspace.restore", Resource: id, Result: "success"})
	return nil
}

// AddDirectUsers shares a workspace with users directly. Incoming entries are
// diffed against existing direct grants by email: matches are updated in
// place, the rest are inserted and the newly added users are notified.
func (s *WorkspaceService) AddDirectUsers(ctx context.Context, workspaceID string, users []DirectUserInput, actor ActorContext) ([]models.WorkspaceGrant, error) {
	ctx = ensureContext(ctx)

	workspace, err := s.requireAccess(ctx, workspaceID, actor)
	if err != nil {
		return nil, err
	}

	var existing []models.WorkspaceGrant
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND team_id IS NULL", workspaceID).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("workspace service: load direct grants: %w", err)
	}

	existingByEmail := make(map[string]*models.WorkspaceGrant, len(existing))
	for i := range existing {
		existingByEmail[normaliseEmail(existing[i].UserEmail)] = &existing[i]
	}

	var (
		inserted   []models.WorkspaceGrant
		newUserIDs []string
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, input := range users {
			email := normaliseEmail(input.Email)
			if email == "" {
				continue
			}

			role := input.Role
			if role == "" {
				role = models.RoleMember
			}

			if grant, ok := existingByEmail[email]; ok {
				if grant.Role == role {
					continue
				}
				if err := tx.Model(grant).Update("role", role).Error; err != nil {
					return fmt.Errorf("workspace service: update direct grant: %w", err)
				}
				metrics.GrantWrites.WithLabelValues("workspace", "update").Inc()
				continue
			}

			var user models.User
			if err := tx.First(&user, "email = ?", email).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return fmt.Errorf("workspace service: load user: %w", err)
			}

			grant := models.WorkspaceGrant{
				WorkspaceID: workspace.ID,
				CompanyID:   workspace.CompanyID,
				UserID:      user.ID,
				UserEmail:   user.Email,
				UserName:    user.DisplayName(),
				Role:        role,
			}
			if err := tx.Create(&grant).Error; err != nil {
				return fmt.Errorf("workspace service: create direct grant: %w", err)
			}

			metrics.GrantWrites.WithLabelValues("workspace", "insert").Inc()
			inserted = append(inserted, grant)
			newUserIDs = append(newUserIDs, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(s.notifier, NotificationEvent{
		Type:         models.NotificationWorkspaceInvitation,
		UserIDs:      newUserIDs,
		ActorID:      actor.UserID,
		ResourceID:   workspace.ID,
		ResourceName: workspace.Title,
	})

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "workspace.share",
		Resource: workspace.ID,
		Result:   "success",
		Metadata: map[string]any{"added": len(inserted)},
	})

	return inserted, nil
}

func (s *WorkspaceService) requireAccess(ctx context.Context, workspaceID string, actor ActorContext) (*models.Workspace, error) {
	if !actor.Valid() {
		return nil, apperrors.ErrUnauthorized
	}

	grant, err := s.guard.WorkspaceGrant(ctx, workspaceID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, apperrors.ErrUnauthorized
	}

	return s.GetByID(ctx, workspaceID)
}

func (s *WorkspaceService) ensureSlugAvailable(ctx context.Context, companyID, wsSlug, excludeID string) error {
	query := s.db.WithContext(ctx).
		Model(&models.Workspace{}).
		Where("company_id = ? AND slug = ?", companyID, wsSlug)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("workspace service: check slug: %w", err)
	}
	if count > 0 {
		return ErrWorkspaceExists
	}
	return nil
}
