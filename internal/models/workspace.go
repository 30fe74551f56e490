package models

import "gorm.io/gorm"

// Workspace is a company-scoped container of brains.
type Workspace struct {
	BaseModel

	CompanyID string `gorm:"type:uuid;index:idx_workspaces_company_slug,unique;not null" json:"company_id"`
	Title     string `gorm:"not null" json:"title"`
	Slug      string `gorm:"index:idx_workspaces_company_slug,unique;not null" json:"slug"`
	IsDefault bool   `gorm:"default:false" json:"is_default"`

	Teams []WorkspaceTeam `gorm:"foreignKey:WorkspaceID" json:"teams,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// WorkspaceTeam is the denormalised stub of a team attached to a workspace.
// The team name is snapshotted for display so listing workspaces never joins
// through the team table.
type WorkspaceTeam struct {
	BaseModel

	WorkspaceID string `gorm:"type:uuid;index:idx_workspace_teams_pair,unique;not null" json:"workspace_id"`
	TeamID      string `gorm:"type:uuid;index:idx_workspace_teams_pair,unique;not null" json:"team_id"`
	TeamName    string `json:"team_name"`
}

// HasTeam reports whether the loaded stub list references the team.
func (w *Workspace) HasTeam(teamID string) bool {
	for _, stub := range w.Teams {
		if stub.TeamID == teamID {
			return true
		}
	}
	return false
}
