package sqlite

import (
	"context"
	"database/sql"

	"github.com/applyhub/identity/internal/identity/domain"
	"github.com/applyhub/identity/internal/identity/store"
)

type accountsRepo struct {
	db *sql.DB
}

const accountColumns = `id, email, full_name, password_hash, external_id, role, created_at, updated_at`

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	// Lookup is case-insensitive; the stored value keeps its casing.
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ? COLLATE NOCASE`, email)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByExternalID(ctx context.Context, externalID string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE external_id = ?`, externalID)
	return scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, full_name, password_hash, external_id, role)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.FullName, mapStringPtr(a.PasswordHash), mapStringPtr(a.ExternalID), string(a.Role))
	return mapConstraint(err)
}

func (r *accountsRepo) AttachExternalID(ctx context.Context, email, externalID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET external_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE email = ? COLLATE NOCASE AND external_id IS NULL`,
		externalID, email)
	if err != nil {
		return mapConstraint(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// No row updated: either the email is unknown, or an external id was
	// already attached (possibly by a racing request). Distinguish the two
	// so the engine can treat the latter as retryable.
	var existing sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT external_id FROM accounts WHERE email = ? COLLATE NOCASE`, email).
		Scan(&existing)
	if err != nil {
		return mapNotFound(err)
	}
	return store.ErrAlreadyExists
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		newHash, accountID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var (
		a            domain.Account
		passwordHash sql.NullString
		externalID   sql.NullString
		role         string
	)
	err := row.Scan(&a.ID, &a.Email, &a.FullName, &passwordHash, &externalID, &role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.PasswordHash = mapNullString(passwordHash)
	a.ExternalID = mapNullString(externalID)
	a.Role = domain.Role(role)
	return a, nil
}
