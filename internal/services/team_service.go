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
)

var (
	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)
	// ErrTeamExists signals a duplicate team name within a company.
	ErrTeamExists = apperrors.New("TEAM_EXISTS", "Team name already used in this company", http.StatusConflict)
)

// TeamService manages team records and their membership lists. Grant
// propagation for membership changes lives in the PropagationService.
type TeamService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewTeamService creates a TeamService instance.
func NewTeamService(db *gorm.DB, audit *AuditService) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	return &TeamService{db: db, audit: audit}, nil
}

// Create registers a team with the given members. Names are unique per
// company.
func (s *TeamService) Create(ctx context.Context, name string, memberIDs []string, actor ActorContext) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}

	companyID, err := resolveCompanyID(actor)
	if err != nil {
		return nil, err
	}

	members, err := s.loadMembers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	team := &models.Team{
		CompanyID: companyID,
		Name:      name,
		Members:   members,
	}
	if err := s.db.WithContext(ctx).Create(team).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrTeamExists
		}
		return nil, fmt.Errorf("team service: create team: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "team.create",
		Resource: team.ID,
		Result:   "success",
		Metadata: map[string]any{"name": name, "members": len(members)},
	})

	return team, nil
}

// GetByID loads a team with its members.
func (s *TeamService) GetByID(ctx context.Context, id string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team models.Team
	err := s.db.WithContext(ctx).Preload("Members").First(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: load team: %w", err)
	}
	return &team, nil
}

// List returns the teams belonging to the actor's company.
func (s *TeamService) List(ctx context.Context, actor ActorContext) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	companyID, err := resolveCompanyID(actor)
	if err != nil {
		return nil, err
	}

	var teams []models.Team
	if err := s.db.WithContext(ctx).
		Preload("Members").
		Where("company_id = ?", companyID).
		Order("name ASC").
		Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("team service: list teams: %w", err)
	}
	return teams, nil
}

// Rename updates the team name, preserving the per-company uniqueness rule.
// Denormalised stub names are refreshed by the propagation engine.
func (s *TeamService) Rename(ctx context.Context, id, name string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}

	team, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if team.Name == name {
		return team, nil
	}

	if err := s.db.WithContext(ctx).Model(team).Update("name", name).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrTeamExists
		}
		return nil, fmt.Errorf("team service: rename team: %w", err)
	}
	team.Name = name
	return team, nil
}

// ReplaceMembers swaps the team's membership for the given user list and
// returns the ids that were added and removed relative to the old roster.
func (s *TeamService) ReplaceMembers(ctx context.Context, id string, memberIDs []string) (*models.Team, []string, []string, error) {
	ctx = ensureContext(ctx)

	team, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	members, err := s.loadMembers(ctx, memberIDs)
	if err != nil {
		return nil, nil, nil, err
	}

	before := team.MemberIDs()
	after := make([]string, 0, len(members))
	for _, member := range members {
		after = append(after, member.ID)
	}

	var added, removed []string
	for _, id := range after {
		if !containsString(before, id) {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !containsString(after, id) {
			removed = append(removed, id)
		}
	}

	if err := s.db.WithContext(ctx).Model(team).Association("Members").Replace(members); err != nil {
		return nil, nil, nil, fmt.Errorf("team service: replace members: %w", err)
	}
	team.Members = members

	return team, added, removed, nil
}

// Delete removes the team row and its membership links. Grant cleanup is the
// propagation engine's job and runs before this.
func (s *TeamService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	team, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(team).Association("Members").Clear(); err != nil {
			return fmt.Errorf("team service: clear members: %w", err)
		}
		if err := tx.Delete(&models.Team{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("team service: delete team: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{Action: "team.delete", Resource: id, Result: "success"})
	return nil
}

func (s *TeamService) loadMembers(ctx context.Context, memberIDs []string) ([]models.User, error) {
	ids := normaliseIDs(memberIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	var members []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("team service: load members: %w", err)
	}
	if len(members) != len(ids) {
		return nil, ErrUserNotFound
	}
	return members, nil
}
