package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Role tags a user may carry. Every user has at least RoleUser.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

type User struct {
	ID             uuid.UUID
	Email          string
	Name           string
	HashedPassword string
	Roles          []string
	IsBlocked      bool

	// Incremented to revoke every token issued before the bump.
	// Tokens embed the version they were minted with
	TokenVersion int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// PublicUser is the client facing shape of a user record.
// The password hash and token version never leave the service
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	IsBlocked bool      `json:"isBlocked"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Roles:     u.Roles,
		IsBlocked: u.IsBlocked,
		CreatedAt: u.CreatedAt,
	}
}
