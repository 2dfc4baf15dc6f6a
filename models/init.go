package models

import (
	"gorm.io/gorm"

	"golang.org/x/crypto/bcrypt"
)

// SeedAdminUser ensures a bootstrap admin account exists so a fresh install
// can log in and provision everything else.
func SeedAdminUser(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hashed),
		Role:         RoleAdmin,
		IsActive:     true,
	}
	return db.FirstOrCreate(&admin, "email = ?", email).Error
}
