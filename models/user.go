package models

import (
	"time"

	"gorm.io/gorm"
)

// Permission tiers. Manager is the top tier and passes every permission check.
const (
	PermissionViewer  = "viewer"
	PermissionEditor  = "editor"
	PermissionManager = "manager"
)

// ValidPermission reports whether p is a recognized permission tier.
func ValidPermission(p string) bool {
	switch p {
	case PermissionViewer, PermissionEditor, PermissionManager:
		return true
	}
	return false
}

// User represents a department staff account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:64;not null" json:"name"`
	Account      string    `gorm:"size:255;uniqueIndex;not null" json:"account"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Permission   string    `gorm:"size:16;not null;default:'viewer'" json:"permission"`
	Campus       string    `gorm:"size:128" json:"campus"`
	Department   string    `gorm:"size:128" json:"department"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Posts        []Post    `json:"-"`
}

// BeforeCreate ensures timestamps and a sane default permission.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Permission == "" {
		u.Permission = PermissionViewer
	}
	return nil
}
