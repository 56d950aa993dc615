package model

import (
	"time"
)

const (
	RoleAdmin = "ROLE_ADMIN"
	RoleUser  = "ROLE_USER"

	// Operator role guarding role management.
	RoleSuperAdmin = "ROLE_SUPERADMIN"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	HashedPassword string    `json:"-"` // Not exposed
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasRole reports whether the user currently holds role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserProfile struct {
	UserID            string `json:"-"`
	Phone             string `json:"phone"`
	Position          string `json:"position"`
	NotificationEmail bool   `json:"notificationEmail"`
	NotificationApp   bool   `json:"notificationApp"`
}
