// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"
)

// Role represents the account role
type Role string

const (
	RolePatient  Role = "patient"
	RolePharmacy Role = "pharmacy"
	RoleAdmin    Role = "admin"
)

// User represents the user entity. Pharmacies are users with the
// pharmacy role; their user ID is the pharmacy ID.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Email         string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password      string     `gorm:"not null;size:255" json:"-"`
	Name          string     `gorm:"not null;size:100" json:"name"`
	Phone         string     `gorm:"size:20" json:"phone"`
	Role          Role       `gorm:"not null;size:20;default:'patient';index" json:"role"`
	PharmacyName  string     `gorm:"size:150" json:"pharmacy_name,omitempty"`
	LicenseNumber string     `gorm:"size:50" json:"license_number,omitempty"`
	Address       string     `gorm:"size:255" json:"address,omitempty"`
	District      string     `gorm:"size:100;index" json:"district,omitempty"`
	IsActive      bool       `gorm:"not null" json:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RolePatient || r == RolePharmacy || r == RoleAdmin
}

// GetDisplayName returns the pharmacy name for pharmacies, else the user name
func (u *User) GetDisplayName() string {
	if u.Role == RolePharmacy && strings.TrimSpace(u.PharmacyName) != "" {
		return u.PharmacyName
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}
