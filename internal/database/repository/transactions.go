package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	OrganizationID string
	AccountID      string
	Status         string
	Limit          int
}

// MatchUpdate carries the only fields that may change after insert.
type MatchUpdate struct {
	Status          string
	TransactionType *string
	Confidence      *float64
	TenantID        *string
	LeaseID         *string
	RuleID          *string
	MatchedAt       *time.Time
	MatchedBy       *string
}

// TransactionRepo handles bank transactions.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const transactionColumns = `t.id, t.account_id, t.provider_transaction_id, t.booking_date, t.value_date, t.amount_cents,
 t.currency, t.counterpart_name, t.counterpart_iban, t.purpose, t.booking_text, t.transaction_type, t.match_status,
 t.match_confidence, t.matched_tenant_id, t.matched_lease_id, t.matched_rule_id, t.matched_at, t.matched_by,
 t.created_at, t.updated_at`

// Insert stores a new transaction. A duplicate (account, provider id) pair
// surfaces as a UNIQUE constraint error.
func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	status := t.MatchStatus
	if status == "" {
		status = MatchUnmatched
	}
	currency := t.Currency
	if currency == "" {
		currency = "EUR"
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO bank_transactions(
	 id, account_id, provider_transaction_id, booking_date, value_date, amount_cents, currency,
	 counterpart_name, counterpart_iban, purpose, booking_text, transaction_type, match_status,
	 match_confidence, matched_tenant_id, matched_lease_id, matched_rule_id, matched_at, matched_by,
	 created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		t.ID, t.AccountID, t.ProviderTransactionID, t.BookingDate, t.ValueDate, t.AmountCents, currency,
		t.CounterpartName, t.CounterpartIBAN, t.Purpose, t.BookingText, t.TransactionType, status,
		t.MatchConfidence, t.MatchedTenantID, t.MatchedLeaseID, t.MatchedRuleID, t.MatchedAt, t.MatchedBy)
	return err
}

// ExistsByProviderID reports whether the account already holds the provider transaction.
func (r *TransactionRepo) ExistsByProviderID(ctx context.Context, accountID, providerID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM bank_transactions WHERE account_id = ? AND provider_transaction_id = ?`,
		accountID, providerID).Scan(&n)
	return n > 0, err
}

// ProviderIDs returns every provider transaction id stored for the account.
func (r *TransactionRepo) ProviderIDs(ctx context.Context, accountID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT provider_transaction_id FROM bank_transactions
	WHERE account_id = ? AND provider_transaction_id IS NOT NULL`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpdateMatch overwrites the match fields of a transaction.
func (r *TransactionRepo) UpdateMatch(ctx context.Context, id string, m MatchUpdate) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE bank_transactions SET
	 match_status = ?, transaction_type = ?, match_confidence = ?, matched_tenant_id = ?, matched_lease_id = ?,
	 matched_rule_id = ?, matched_at = ?, matched_by = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`,
		m.Status, m.TransactionType, m.Confidence, m.TenantID, m.LeaseID, m.RuleID, m.MatchedAt, m.MatchedBy, id)
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM bank_transactions t WHERE t.id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	var where []string
	var args []interface{}

	if f.OrganizationID != "" {
		where = append(where, "c.organization_id = ?")
		args = append(args, f.OrganizationID)
	}
	if f.AccountID != "" {
		where = append(where, "t.account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Status != "" {
		where = append(where, "t.match_status = ?")
		args = append(args, f.Status)
	}

	query := `SELECT ` + transactionColumns + ` FROM bank_transactions t
	JOIN bank_accounts a ON a.id = t.account_id
	JOIN bank_connections c ON c.id = a.connection_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.booking_date DESC, t.created_at DESC, t.id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var providerID, name, iban, purpose, bookingText, txType, tenant, lease, rule, matchedBy sql.NullString
	var valueDate, matchedAt sql.NullTime
	var confidence sql.NullFloat64
	if err := row.Scan(&t.ID, &t.AccountID, &providerID, &t.BookingDate, &valueDate, &t.AmountCents,
		&t.Currency, &name, &iban, &purpose, &bookingText, &txType, &t.MatchStatus,
		&confidence, &tenant, &lease, &rule, &matchedAt, &matchedBy,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	t.ProviderTransactionID = nullString(providerID)
	t.ValueDate = nullTime(valueDate)
	t.CounterpartName = nullString(name)
	t.CounterpartIBAN = nullString(iban)
	t.Purpose = nullString(purpose)
	t.BookingText = nullString(bookingText)
	t.TransactionType = nullString(txType)
	if confidence.Valid {
		t.MatchConfidence = &confidence.Float64
	}
	t.MatchedTenantID = nullString(tenant)
	t.MatchedLeaseID = nullString(lease)
	t.MatchedRuleID = nullString(rule)
	t.MatchedAt = nullTime(matchedAt)
	t.MatchedBy = nullString(matchedBy)
	return t, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
