package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AccountRepo handles bank accounts.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountSelect = `
	SELECT a.id, a.connection_id, c.organization_id, a.provider_account_id, a.iban, a.name, a.account_type,
	 a.balance_cents, a.balance_date, a.currency, a.is_active, a.created_at, a.updated_at
	FROM bank_accounts a JOIN bank_connections c ON c.id = a.connection_id`

func (r *AccountRepo) Upsert(ctx context.Context, a Account) error {
	if a.Currency == "" {
		a.Currency = "EUR"
	}
	if a.AccountType == "" {
		a.AccountType = "checking"
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO bank_accounts(id, connection_id, provider_account_id, iban, name, account_type, currency, is_active,
	 created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 iban=excluded.iban,
	 name=excluded.name,
	 account_type=excluded.account_type,
	 is_active=excluded.is_active,
	 updated_at=CURRENT_TIMESTAMP;
	`, a.ID, a.ConnectionID, a.ProviderAccountID, a.IBAN, a.Name, a.AccountType, a.Currency, a.IsActive)
	return err
}

// Get returns the account or nil if it does not exist.
func (r *AccountRepo) Get(ctx context.Context, id string) (*Account, error) {
	row := r.db.QueryRowContext(ctx, accountSelect+` WHERE a.id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) ListByConnection(ctx context.Context, connectionID string) ([]Account, error) {
	return r.list(ctx, accountSelect+` WHERE a.connection_id = ? ORDER BY a.created_at, a.id`, connectionID)
}

func (r *AccountRepo) ListByOrganization(ctx context.Context, organizationID string) ([]Account, error) {
	return r.list(ctx, accountSelect+` WHERE c.organization_id = ? ORDER BY a.created_at, a.id`, organizationID)
}

// UpdateBalance is only called by sync.
func (r *AccountRepo) UpdateBalance(ctx context.Context, id string, cents int64, date time.Time) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE bank_accounts SET balance_cents = ?, balance_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		cents, date, id)
	return err
}

func (r *AccountRepo) list(ctx context.Context, query string, args ...interface{}) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAccount(s scanner) (Account, error) {
	var (
		a           Account
		balanceDate sql.NullTime
	)
	if err := s.Scan(&a.ID, &a.ConnectionID, &a.OrganizationID, &a.ProviderAccountID, &a.IBAN, &a.Name, &a.AccountType,
		&a.BalanceCents, &balanceDate, &a.Currency, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	a.BalanceDate = nullTime(balanceDate)
	return a, nil
}
