package models

// Team is a named, reusable group of users used to bulk-grant access to
// workspaces and brains.
type Team struct {
	BaseModel

	CompanyID string `gorm:"type:uuid;index:idx_teams_company_name,unique;not null" json:"company_id"`
	Name      string `gorm:"index:idx_teams_company_name,unique;not null" json:"name"`

	Members []User `gorm:"many2many:team_members;" json:"members,omitempty"`
}

// MemberIDs returns the ids of the loaded members.
func (t *Team) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members))
	for _, member := range t.Members {
		ids = append(ids, member.ID)
	}
	return ids
}
