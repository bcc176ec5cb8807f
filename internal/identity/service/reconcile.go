package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/applyhub/identity/internal/identity/domain"
	"github.com/applyhub/identity/internal/identity/store"
	"github.com/applyhub/identity/pkg/idx"
	"github.com/applyhub/identity/pkg/slogx"
)

var (
	ErrMissingClaim     = errors.New("missing_required_claim")
	ErrAccountNotFound  = errors.New("account_not_found")
	ErrConflictRetry    = errors.New("conflict_retry")
	ErrStoreUnavailable = errors.New("store_unavailable")
)

// ReconcileService maps a verified provider assertion to a local account:
// return, link, create or reject. The store's uniqueness constraints are
// the only serialization; racing callers converge by re-reading the key
// that won.
type ReconcileService struct {
	Store store.Store
}

// Resolve runs the reconciliation decision for one assertion. Ordered,
// first match wins:
//
//  1. assertion without subject or email is malformed
//  2. account already linked to the subject: returning user
//  3. account matching the email: attach the subject (link)
//  4. no account: create when intent is signup, reject otherwise
//
// At most one account creation or one linking mutation happens per call,
// and both are idempotent under retry. A uniqueness conflict from a racing
// call is surfaced as ErrConflictRetry only when re-reading cannot already
// converge; callers retry resolution once and treat a persistent conflict
// as ErrStoreUnavailable.
func (s *ReconcileService) Resolve(
	ctx context.Context,
	assertion domain.ProviderAssertion,
	intent domain.Intent,
) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	subject := strings.TrimSpace(assertion.SubjectID)
	email := strings.TrimSpace(assertion.Email)
	if subject == "" || email == "" {
		return domain.Account{}, ErrMissingClaim
	}

	// Returning user: subject already linked.
	acct, err := s.Store.Accounts().GetAccountByExternalID(ctx, subject)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return storeFailure(err)
	}

	// Known email: link the subject to the existing account. Linking
	// trusts the adapter to only assert provider-verified emails; an
	// unverified email claim here would allow account takeover.
	acct, err = s.Store.Accounts().GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return s.link(ctx, acct, email, subject)
	case !errors.Is(err, store.ErrNotFound):
		return storeFailure(err)
	}

	// No account by either key. Bare login attempts never auto-provision;
	// the caller redirects those to an explicit signup path.
	if intent != domain.IntentSignup {
		return domain.Account{}, ErrAccountNotFound
	}

	acct = domain.Account{
		ID:         idx.New().String(),
		Email:      email,
		FullName:   assertion.FullName,
		ExternalID: &subject,
		Role:       domain.RoleUser,
	}
	if err := s.Store.Accounts().CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// A racing signup won; converge on the stored account.
			existing, err := s.Store.Accounts().GetAccountByExternalID(ctx, subject)
			if err == nil {
				return existing, nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return storeFailure(err)
			}
			// The conflict was on the email key alone: retry will land
			// on the link path.
			return domain.Account{}, ErrConflictRetry
		}
		return storeFailure(err)
	}

	log.Info("account created via provider signup", "account_id", acct.ID)

	created, err := s.Store.Accounts().GetAccountByID(ctx, acct.ID)
	if err != nil {
		return storeFailure(err)
	}
	return created, nil
}

// link attaches subject to acct unless something already is attached. A
// lost race is non-fatal: the account linked by the winner is re-read and
// returned.
func (s *ReconcileService) link(
	ctx context.Context,
	acct domain.Account,
	email, subject string,
) (domain.Account, error) {
	if acct.Linked() {
		// Linked to some other subject for the same email. The account
		// stays reachable through its own provider login; this assertion
		// cannot claim it.
		if *acct.ExternalID != subject {
			return domain.Account{}, ErrAccountNotFound
		}
		return acct, nil
	}

	err := s.Store.Accounts().AttachExternalID(ctx, email, subject)
	if err == nil {
		acct.ExternalID = &subject
		return acct, nil
	}

	if errors.Is(err, store.ErrAlreadyExists) {
		// Concurrent request attached first; if it attached the same
		// subject we already converged.
		linked, err := s.Store.Accounts().GetAccountByExternalID(ctx, subject)
		if err == nil {
			return linked, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return storeFailure(err)
		}
		return domain.Account{}, ErrConflictRetry
	}
	if errors.Is(err, store.ErrNotFound) {
		// Account disappeared between the lookup and the attach.
		return domain.Account{}, ErrConflictRetry
	}
	return storeFailure(err)
}

// storeFailure wraps infrastructure errors so callers can map them to a
// 5xx-equivalent without inspecting driver detail.
func storeFailure(err error) (domain.Account, error) {
	return domain.Account{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
