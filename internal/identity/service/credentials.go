package service

import (
	"context"
	"errors"
	"strings"

	"github.com/applyhub/identity/internal/identity/domain"
	"github.com/applyhub/identity/internal/identity/store"
	"github.com/applyhub/identity/pkg/cryptox"
	"github.com/applyhub/identity/pkg/idx"
	"github.com/applyhub/identity/pkg/slogx"
)

// MinPasswordLength is the minimum accepted password size.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailTaken         = errors.New("email_taken")
	ErrWeakPassword       = errors.New("weak_password")
)

// CredentialsService covers the local email+password flows: signup, login
// and password change. Reset delivery (email/SMS) is not handled here.
type CredentialsService struct {
	Store store.Store
}

// Register creates a password-backed account. The email must not collide
// with any existing account, provider-created ones included.
func (s *CredentialsService) Register(
	ctx context.Context,
	email, password, fullName string,
) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return domain.Account{}, ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Account{}, err
	}

	acct := domain.Account{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: &hash,
		Role:         domain.RoleUser,
	}
	if err := s.Store.Accounts().CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrEmailTaken
		}
		return storeFailure(err)
	}

	log.Info("account created via credential signup", "account_id", acct.ID)

	created, err := s.Store.Accounts().GetAccountByID(ctx, acct.ID)
	if err != nil {
		return storeFailure(err)
	}
	return created, nil
}

// Authenticate checks an email+password pair. Unknown email, wrong
// password and password-less (provider-only) accounts all fail with the
// same ErrInvalidCredentials.
func (s *CredentialsService) Authenticate(
	ctx context.Context,
	email, password string,
) (domain.Account, error) {
	acct, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrInvalidCredentials
		}
		return storeFailure(err)
	}

	if !acct.HasPassword() {
		return domain.Account{}, ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, *acct.PasswordHash); err != nil {
		return domain.Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// UpdatePassword changes the password for an authenticated account. The
// current password is required whenever one is set; a provider-only
// account may set its first password without one.
func (s *CredentialsService) UpdatePassword(
	ctx context.Context,
	accountID, currentPassword, newPassword string,
) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	acct, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		_, err = storeFailure(err)
		return err
	}

	if acct.HasPassword() {
		if err := cryptox.VerifyPassword(currentPassword, *acct.PasswordHash); err != nil {
			return ErrInvalidCredentials
		}
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Accounts().UpdatePasswordHash(ctx, accountID, hash); err != nil {
		_, err = storeFailure(err)
		return err
	}
	return nil
}
