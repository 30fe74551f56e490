package models

import "gorm.io/gorm"

// Chat is a conversation container under a brain. Chats are soft-deleted;
// grant cascades only consider active rows.
type Chat struct {
	BaseModel

	BrainID     string `gorm:"type:uuid;index;not null" json:"brain_id"`
	WorkspaceID string `gorm:"type:uuid;index;not null" json:"workspace_id"`

	Title     string `json:"title"`
	IsNewChat bool   `gorm:"default:true" json:"is_new_chat"`

	Teams []ChatTeam `gorm:"foreignKey:ChatID" json:"teams,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ChatTeam links a chat to a team whose members were expanded into it.
type ChatTeam struct {
	BaseModel

	ChatID string `gorm:"type:uuid;index:idx_chat_teams_pair,unique;not null" json:"chat_id"`
	TeamID string `gorm:"type:uuid;index:idx_chat_teams_pair,unique;not null" json:"team_id"`
}
