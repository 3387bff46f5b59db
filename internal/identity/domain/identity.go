package domain

import "time"

// Kind distinguishes the two principal kinds that can authenticate. Staff
// users carry a role expandable into permissions; tenants do not participate
// in the permission catalog at all.
type Kind string

const (
	KindUser   Kind = "user"
	KindTenant Kind = "tenant"
)

func (k Kind) Valid() bool {
	return k == KindUser || k == KindTenant
}

// Identity is an authenticatable principal. The auth core reads it and
// updates its password hash and login timestamp; all other profile data is
// owned by user management.
type Identity struct {
	ID           string
	Email        string
	Kind         Kind
	Role         string
	Active       bool
	PasswordHash string // argon2id PHC string, set only via explicit SetPassword
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}
