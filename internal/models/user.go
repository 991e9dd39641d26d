package models

import "gorm.io/gorm"

// User represents a registered account.
//
// A user is created without a password and inactive; the account is
// activated when the password is first set through a reset token.
// Users are never hard-deleted.
type User struct {
	gorm.Model
	Username     string `gorm:"size:255;unique;not null"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255"`
	Active       bool   `gorm:"not null;default:false;index"`

	// PicturePath points at the stored profile image. File storage
	// itself lives outside this service.
	PicturePath string `gorm:"size:255"`
}
