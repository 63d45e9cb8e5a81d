package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// DirectoryRepo reads tenants and leases. Both are owned by the property
// management side of the product; reconciliation only needs them read-only.
type DirectoryRepo struct {
	db *sql.DB
}

func NewDirectoryRepo(db *sql.DB) *DirectoryRepo { return &DirectoryRepo{db: db} }

func (r *DirectoryRepo) UpsertTenant(ctx context.Context, t Tenant) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO tenants(id, organization_id, first_name, last_name, created_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET first_name=excluded.first_name, last_name=excluded.last_name;
	`, t.ID, t.OrganizationID, t.FirstName, t.LastName)
	return err
}

func (r *DirectoryRepo) UpsertLease(ctx context.Context, l Lease) error {
	var utility decimal.NullDecimal
	if l.UtilityAdvance != nil {
		utility = decimal.NewNullDecimal(*l.UtilityAdvance)
	}
	status := l.Status
	if status == "" {
		status = "active"
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO leases(id, organization_id, tenant_id, rent_amount, utility_advance, status, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 rent_amount=excluded.rent_amount,
	 utility_advance=excluded.utility_advance,
	 status=excluded.status;
	`, l.ID, l.OrganizationID, l.TenantID, l.RentAmount.String(), utility, status)
	return err
}

// Tenants lists an organization's tenants in creation order.
func (r *DirectoryRepo) Tenants(ctx context.Context, organizationID string) ([]Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, organization_id, first_name, last_name FROM tenants
	WHERE organization_id = ? ORDER BY created_at, id
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.FirstName, &t.LastName); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Leases lists an organization's leases in creation order.
func (r *DirectoryRepo) Leases(ctx context.Context, organizationID string) ([]Lease, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, organization_id, tenant_id, rent_amount, utility_advance, status FROM leases
	WHERE organization_id = ? ORDER BY created_at, id
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lease
	for rows.Next() {
		var (
			l       Lease
			utility decimal.NullDecimal
		)
		if err := rows.Scan(&l.ID, &l.OrganizationID, &l.TenantID, &l.RentAmount, &utility, &l.Status); err != nil {
			return nil, err
		}
		if utility.Valid {
			u := utility.Decimal
			l.UtilityAdvance = &u
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
