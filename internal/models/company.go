package models

// Company is the tenant boundary. Every workspace, brain, and grant is
// scoped to exactly one company.
type Company struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`

	Users []User `gorm:"foreignKey:CompanyID" json:"users,omitempty"`
	Teams []Team `gorm:"foreignKey:CompanyID" json:"teams,omitempty"`
}
