package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleParticipant Role = "PARTICIPANT"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleParticipant:
		return r, true
	default:
		return "", false
	}
}

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk" json:"id"`
	Email        string    `bun:"email,unique,notnull" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	FullName     string    `bun:"full_name,nullzero" json:"full_name,omitempty"`
	Phone        string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Role         Role      `bun:"role,notnull" json:"role"`
	IsActive     bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// DisplayName falls back to the email when no full name was given.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}
