package models

import "time"

// GeneralBrainTitle is the well-known title of the shared brain the
// propagation engine lazily creates per workspace. Find-or-create matches on
// this title within the workspace, not on slug.
const GeneralBrainTitle = "General Brain"

// Brain is a shared-or-private knowledge-base container scoping a set of
// chats. Visibility states form a one-way lattice: private brains can be
// converted to shared but never back, and archive/restore never changes the
// share flag.
type Brain struct {
	BaseModel

	WorkspaceID string `gorm:"type:uuid;index;not null" json:"workspace_id"`
	CompanyID   string `gorm:"type:uuid;index;not null" json:"company_id"`
	OwnerID     string `gorm:"type:uuid;index;not null" json:"owner_id"`

	Title string `gorm:"not null" json:"title"`
	// Slug uniqueness is scope-dependent (shared: per workspace, private:
	// per workspace and owner) and therefore enforced by the service rather
	// than a single database index.
	Slug      string `gorm:"index;not null" json:"slug"`
	IsShare   bool   `gorm:"default:false" json:"is_share"`
	IsDefault bool   `gorm:"default:false" json:"is_default"`

	Teams []BrainTeam `gorm:"foreignKey:BrainID" json:"teams,omitempty"`

	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	ArchivedBy *string    `gorm:"type:uuid" json:"archived_by,omitempty"`
}

// BrainTeam is the denormalised stub of a team attached to a brain.
type BrainTeam struct {
	BaseModel

	BrainID  string `gorm:"type:uuid;index:idx_brain_teams_pair,unique;not null" json:"brain_id"`
	TeamID   string `gorm:"type:uuid;index:idx_brain_teams_pair,unique;not null" json:"team_id"`
	TeamName string `json:"team_name"`
}

// Archived reports whether the brain currently carries an archive marker.
func (b *Brain) Archived() bool {
	return b.ArchivedAt != nil
}

// HasTeam reports whether the loaded stub list references the team.
func (b *Brain) HasTeam(teamID string) bool {
	for _, stub := range b.Teams {
		if stub.TeamID == teamID {
			return true
		}
	}
	return false
}
