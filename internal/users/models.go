package users

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role carried in access tokens
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID                uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	FirstName         string    `json:"first_name" gorm:"not null"`
	LastName          string    `json:"last_name" gorm:"not null"`
	Password          string    `json:"-" gorm:"not null"`
	Role              Role      `json:"role" gorm:"type:varchar(16);not null;default:'USER'"`
	Email             string    `json:"email" gorm:"uniqueIndex;not null"`
	PreferredCurrency string    `json:"preferred_currency" gorm:"type:varchar(3);not null;default:'USD'"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
