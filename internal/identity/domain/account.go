package domain

import "time"

// Role is the coarse access level assigned to an account at creation. Role
// changes happen through administrative tooling, never through the
// reconciliation or login paths.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is one local identity. Email comparison is case-insensitive but
// the stored value keeps its original casing (enforced at the schema).
//
// Every account must have at least one usable authentication path: a
// password hash, an external provider subject, or both.
type Account struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash *string // nil for accounts created purely via a provider
	ExternalID   *string // provider subject, nil until linked
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can authenticate locally.
func (a Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// Linked reports whether a provider subject is attached to the account.
func (a Account) Linked() bool {
	return a.ExternalID != nil && *a.ExternalID != ""
}
