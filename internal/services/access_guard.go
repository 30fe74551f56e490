package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/models"
)

// AccessGuard answers whether a user holds an access grant for a resource.
// It never writes; every mutating service calls it before touching storage.
type AccessGuard struct {
	db *gorm.DB
}

// NewAccessGuard constructs an AccessGuard instance.
func NewAccessGuard(db *gorm.DB) (*AccessGuard, error) {
	if db == nil {
		return nil, errors.New("access guard: db is required")
	}
	return &AccessGuard{db: db}, nil
}

// WorkspaceGrant looks up a workspace grant for the user. A nil grant with a
// nil error means no grant exists.
func (g *AccessGuard) WorkspaceGrant(ctx context.Context, workspaceID, userID string) (*models.WorkspaceGrant, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(workspaceID) == "" || strings.TrimSpace(userID) == "" {
		return nil, nil
	}

	var grant models.WorkspaceGrant
	err := g.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("access guard: load workspace grant: %w", err)
	}
	return &grant, nil
}

// BrainGrant looks up a brain grant for the user. A nil grant with a nil
// error means no grant exists.
func (g *AccessGuard) BrainGrant(ctx context.Context, brainID, userID string) (*models.BrainGrant, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(brainID) == "" || strings.TrimSpace(userID) == "" {
		return nil, nil
	}

	var grant models.BrainGrant
	err := g.db.WithContext(ctx).
		Where("brain_id = ? AND user_id = ?", brainID, userID).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("access guard: load brain grant: %w", err)
	}
	return &grant, nil
}

// HasWorkspaceAccess reports whether any workspace grant exists for the user.
func (g *AccessGuard) HasWorkspaceAccess(ctx context.Context, workspaceID, userID string) (bool, error) {
	grant, err := g.WorkspaceGrant(ctx, workspaceID, userID)
	if err != nil {
		return false, err
	}
	return grant != nil, nil
}

// HasBrainAccess reports whether any brain grant exists for the user.
func (g *AccessGuard) HasBrainAccess(ctx context.Context, brainID, userID string) (bool, error) {
	grant, err := g.BrainGrant(ctx, brainID, userID)
	if err != nil {
		return false, err
	}
	return grant != nil, nil
}

// CanSeeBrain applies the visibility gate: a grant must exist, and private
// brains additionally require the user's private-brain-visible account flag.
func (g *AccessGuard) CanSeeBrain(ctx context.Context, brain *models.Brain, userID string) (bool, error) {
	if brain == nil {
		return false, nil
	}

	grant, err := g.BrainGrant(ctx, brain.ID, userID)
	if err != nil {
		return false, err
	}
	if grant == nil {
		return false, nil
	}

	if brain.IsShare {
		return true, nil
	}

	var user models.User
	err = g.db.WithContext(ensureContext(ctx)).
		Select("id", "private_brain_visible").
		First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("access guard: load user: %w", err)
	}

	return user.PrivateBrainVisible, nil
}
