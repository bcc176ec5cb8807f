package store

import (
	"context"
	"errors"

	"github.com/applyhub/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. The store is the single source of truth for uniqueness:
// drivers must enforce the email and external-id constraints atomically and
// report violations as ErrAlreadyExists so the reconciliation engine can
// treat racing writers as a retryable condition.
type Store interface {
	Accounts() Accounts

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Accounts interface {
	// GetAccountByID returns an account by its immutable id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail looks up an account by email. The comparison is
	// case-insensitive; storage is case-preserving.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetAccountByExternalID looks up an account by provider subject.
	GetAccountByExternalID(ctx context.Context, externalID string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by the app via
	// ULID). Returns ErrAlreadyExists on an email or external-id
	// uniqueness violation.
	CreateAccount(ctx context.Context, a domain.Account) error

	// AttachExternalID sets external_id on the account matching email,
	// but only if no external id is attached yet. Returns
	// ErrAlreadyExists when an external id is already present (possibly
	// attached by a concurrent request) and ErrNotFound when no account
	// matches the email.
	AttachExternalID(ctx context.Context, email, externalID string) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID, newHash string) error
}
