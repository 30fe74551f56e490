package models

// WorkspaceGrant asserts a user's access to a workspace. TeamID is nil for
// direct grants and set for team-derived ones; the pair (workspace, user,
// team) is the natural idempotency key for cascade upserts.
type WorkspaceGrant struct {
	BaseModel

	WorkspaceID string `gorm:"type:uuid;index:idx_workspace_grants_key,unique;not null" json:"workspace_id"`
	CompanyID   string `gorm:"type:uuid;index;not null" json:"company_id"`

	UserID    string `gorm:"type:uuid;index:idx_workspace_grants_key,unique;not null" json:"user_id"`
	UserEmail string `gorm:"index;not null" json:"user_email"`
	UserName  string `json:"user_name"`

	Role   string  `gorm:"default:member" json:"role"`
	TeamID *string `gorm:"type:uuid;index:idx_workspace_grants_key,unique" json:"team_id,omitempty"`
}

// Origin returns the grant's origin tag.
func (g *WorkspaceGrant) Origin() GrantOrigin {
	return OriginFromTeamID(g.TeamID)
}

// BrainGrant asserts a user's access to a brain. Brain title and slug are
// snapshotted so share listings do not join through the brain table.
type BrainGrant struct {
	BaseModel

	BrainID     string `gorm:"type:uuid;index:idx_brain_grants_key,unique;not null" json:"brain_id"`
	BrainTitle  string `json:"brain_title"`
	BrainSlug   string `json:"brain_slug"`
	WorkspaceID string `gorm:"type:uuid;index;not null" json:"workspace_id"`

	UserID    string `gorm:"type:uuid;index:idx_brain_grants_key,unique;not null" json:"user_id"`
	UserEmail string `gorm:"index;not null" json:"user_email"`

	Role      string  `gorm:"default:member" json:"role"`
	TeamID    *string `gorm:"type:uuid;index:idx_brain_grants_key,unique" json:"team_id,omitempty"`
	InvitedBy string  `gorm:"type:uuid" json:"invited_by"`
}

// Origin returns the grant's origin tag.
func (g *BrainGrant) Origin() GrantOrigin {
	return OriginFromTeamID(g.TeamID)
}

// ChatGrant asserts a user's membership in a chat, derived from brain-level
// sharing. IsNewChat snapshots the chat flag at grant time.
type ChatGrant struct {
	BaseModel

	ChatID  string `gorm:"type:uuid;index:idx_chat_grants_key,unique;not null" json:"chat_id"`
	BrainID string `gorm:"type:uuid;index;not null" json:"brain_id"`

	UserID    string `gorm:"type:uuid;index:idx_chat_grants_key,unique;not null" json:"user_id"`
	UserEmail string `json:"user_email"`

	TeamID      *string `gorm:"type:uuid;index:idx_chat_grants_key,unique" json:"team_id,omitempty"`
	IsFavourite bool    `gorm:"default:false" json:"is_favourite"`
	IsNewChat   bool    `gorm:"default:true" json:"is_new_chat"`
}

// Origin returns the grant's origin tag.
func (g *ChatGrant) Origin() GrantOrigin {
	return OriginFromTeamID(g.TeamID)
}
