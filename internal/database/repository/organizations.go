package repository

import (
	"context"
	"database/sql"
	"errors"
)

// OrganizationRepo handles organizations and their members.
type OrganizationRepo struct {
	db *sql.DB
}

func NewOrganizationRepo(db *sql.DB) *OrganizationRepo { return &OrganizationRepo{db: db} }

func (r *OrganizationRepo) Upsert(ctx context.Context, o Organization) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO organizations(id, name, created_at) VALUES(?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET name=excluded.name;
	`, o.ID, o.Name)
	return err
}

func (r *OrganizationRepo) AddMember(ctx context.Context, userID, organizationID, role string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT OR IGNORE INTO organization_members(user_id, organization_id, role, created_at)
	VALUES(?, ?, ?, CURRENT_TIMESTAMP)
	`, userID, organizationID, role)
	return err
}

// ForUser returns the organization the user belongs to, or nil if none.
// Users belonging to several organizations get the oldest membership.
func (r *OrganizationRepo) ForUser(ctx context.Context, userID string) (*Organization, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT o.id, o.name, o.created_at
	FROM organizations o JOIN organization_members m ON m.organization_id = o.id
	WHERE m.user_id = ?
	ORDER BY m.created_at, o.id
	LIMIT 1
	`, userID)
	var o Organization
	if err := row.Scan(&o.ID, &o.Name, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrganizationRepo) List(ctx context.Context) ([]Organization, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM organizations ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
