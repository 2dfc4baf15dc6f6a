package models

import (
	"gorm.io/gorm"
)

// DefaultProjectName is the project the importer files teams under when the
// spreadsheet names no project and none exists yet.
const DefaultProjectName = "General"

// Project groups teams under a set of managing users
type Project struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`

	// Relations
	Managers []User `gorm:"many2many:project_managers;" json:"managers,omitempty"`
	Teams    []Team `gorm:"foreignKey:ProjectID" json:"teams,omitempty"`
}

// Team belongs to exactly one project and owns its membership list
type Team struct {
	gorm.Model

	Name      string `gorm:"not null;index" json:"name"`
	ProjectID uint   `gorm:"not null;index" json:"project_id"`

	// Relations
	Members   []User     `gorm:"many2many:team_members;" json:"members,omitempty"`
	Questions []Question `gorm:"many2many:team_questions;" json:"questions,omitempty"`
	Project   Project    `json:"-"`
}

// AddMember links the user to the team, idempotently (set semantics).
func (t *Team) AddMember(db *gorm.DB, user *User) error {
	var n int64
	if err := db.Table("team_members").
		Where("team_id = ? AND user_id = ?", t.ID, user.ID).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return db.Model(t).Association("Members").Append(user)
}
