package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ConnectionRepo handles bank connections.
type ConnectionRepo struct {
	db *sql.DB
}

func NewConnectionRepo(db *sql.DB) *ConnectionRepo { return &ConnectionRepo{db: db} }

const connectionColumns = `id, organization_id, provider_user_id, provider_connection_id, bank_name, bank_logo,
 bank_bic, status, last_sync_at, error_message, created_at, updated_at`

func (r *ConnectionRepo) Insert(ctx context.Context, c Connection) error {
	status := c.Status
	if status == "" {
		status = ConnectionPending
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO bank_connections(
	 id, organization_id, provider_user_id, provider_connection_id, bank_name, bank_logo, bank_bic,
	 status, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, c.ID, c.OrganizationID, c.ProviderUserID, c.ProviderConnectionID, c.BankName, c.BankLogo, c.BankBIC, status)
	return err
}

// Get returns the connection or nil if it does not exist.
func (r *ConnectionRepo) Get(ctx context.Context, id string) (*Connection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM bank_connections WHERE id = ?`, id)
	c, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByOrganization lists the organization's connections, oldest first.
func (r *ConnectionRepo) ListByOrganization(ctx context.Context, organizationID string) ([]Connection, error) {
	return r.list(ctx, `SELECT `+connectionColumns+` FROM bank_connections WHERE organization_id = ? ORDER BY created_at, id`, organizationID)
}

// ListByStatus lists connections in the given status across all organizations.
func (r *ConnectionRepo) ListByStatus(ctx context.Context, status string) ([]Connection, error) {
	return r.list(ctx, `SELECT `+connectionColumns+` FROM bank_connections WHERE status = ? ORDER BY organization_id, created_at, id`, status)
}

func (r *ConnectionRepo) list(ctx context.Context, query string, args ...interface{}) ([]Connection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkSynced records a successful sync and clears any previous error.
func (r *ConnectionRepo) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE bank_connections SET status = ?, last_sync_at = ?, error_message = NULL, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, ConnectionConnected, at, id)
	return err
}

// MarkError records a failed provider call.
func (r *ConnectionRepo) MarkError(ctx context.Context, id, message string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE bank_connections SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, ConnectionError, message, id)
	return err
}

// DeleteTx removes the connection; accounts and transactions cascade.
func (r *ConnectionRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM bank_connections WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanConnection(s scanner) (Connection, error) {
	var (
		c          Connection
		logo, bic  sql.NullString
		lastSyncAt sql.NullTime
		errMsg     sql.NullString
	)
	if err := s.Scan(&c.ID, &c.OrganizationID, &c.ProviderUserID, &c.ProviderConnectionID, &c.BankName, &logo,
		&bic, &c.Status, &lastSyncAt, &errMsg, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Connection{}, err
	}
	c.BankLogo = nullString(logo)
	c.BankBIC = nullString(bic)
	c.ErrorMessage = nullString(errMsg)
	c.LastSyncAt = nullTime(lastSyncAt)
	return c, nil
}
