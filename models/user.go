package models

import (
	"gorm.io/gorm"
)

// Roles understood by the access evaluator. Only an admin may mint another admin.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system
type User struct {
	gorm.Model

	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"default:'employee';index" json:"role"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// CreatedByID records who provisioned the account. Managers may manage
	// users they created in addition to their project members.
	CreatedByID *uint `gorm:"index" json:"created_by_id,omitempty"`

	// Relations. Both sides of a membership read the same join table, so the
	// back-references cannot drift out of sync.
	Teams    []Team    `gorm:"many2many:team_members;" json:"teams,omitempty"`
	Projects []Project `gorm:"many2many:project_managers;" json:"projects,omitempty"`
}

// TeamIDs returns the ids of every team the user belongs to.
func (u *User) TeamIDs(db *gorm.DB) ([]uint, error) {
	var ids []uint
	err := db.Table("team_members").
		Where("user_id = ?", u.ID).
		Pluck("team_id", &ids).Error
	return ids, err
}

// ManagedProjectIDs returns the ids of every project the user manages.
func (u *User) ManagedProjectIDs(db *gorm.DB) ([]uint, error) {
	var ids []uint
	err := db.Table("project_managers").
		Where("user_id = ?", u.ID).
		Pluck("project_id", &ids).Error
	return ids, err
}
