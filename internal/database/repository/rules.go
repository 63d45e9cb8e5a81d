package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// RuleRepo stores organization-scoped transaction rules.
type RuleRepo struct{ db *sql.DB }

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

const ruleColumns = `id, organization_id, name, description, conditions, action_type, action_config, priority,
 is_active, match_count, last_match_at, created_at, updated_at`

func (r *RuleRepo) Add(ctx context.Context, rule Rule) error {
	createdAt := rule.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transaction_rules(id, organization_id, name, description, conditions, action_type, action_config,
	 priority, is_active, match_count, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, CURRENT_TIMESTAMP)
	`, rule.ID, rule.OrganizationID, rule.Name, rule.Description, rule.Conditions, rule.ActionType, rule.ActionConfig,
		rule.Priority, rule.IsActive, createdAt)
	return err
}

// Update replaces the user-editable fields. Statistics are left untouched.
func (r *RuleRepo) Update(ctx context.Context, rule Rule) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	UPDATE transaction_rules SET
	 name = ?, description = ?, conditions = ?, action_type = ?, action_config = ?, priority = ?, is_active = ?,
	 updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND organization_id = ?
	`, rule.Name, rule.Description, rule.Conditions, rule.ActionType, rule.ActionConfig, rule.Priority, rule.IsActive,
		rule.ID, rule.OrganizationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *RuleRepo) Delete(ctx context.Context, organizationID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transaction_rules WHERE id = ? AND organization_id = ?`, id, organizationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Get returns the rule or nil if it does not exist.
func (r *RuleRepo) Get(ctx context.Context, id string) (*Rule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM transaction_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListActive returns the organization's active rules in evaluation order.
func (r *RuleRepo) ListActive(ctx context.Context, organizationID string) ([]Rule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM transaction_rules
	WHERE organization_id = ? AND is_active = 1
	ORDER BY priority DESC, created_at ASC, id ASC`, organizationID)
}

// List returns all of the organization's rules, active or not, in evaluation order.
func (r *RuleRepo) List(ctx context.Context, organizationID string) ([]Rule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM transaction_rules
	WHERE organization_id = ?
	ORDER BY priority DESC, created_at ASC, id ASC`, organizationID)
}

// RecordMatch bumps the rule's statistics.
func (r *RuleRepo) RecordMatch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE transaction_rules SET match_count = match_count + 1, last_match_at = ? WHERE id = ?`, at, id)
	return err
}

func (r *RuleRepo) list(ctx context.Context, query string, args ...interface{}) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func scanRule(s scanner) (Rule, error) {
	var (
		rule        Rule
		description sql.NullString
		lastMatchAt sql.NullTime
	)
	if err := s.Scan(&rule.ID, &rule.OrganizationID, &rule.Name, &description, &rule.Conditions, &rule.ActionType,
		&rule.ActionConfig, &rule.Priority, &rule.IsActive, &rule.MatchCount, &lastMatchAt, &rule.CreatedAt,
		&rule.UpdatedAt); err != nil {
		return Rule{}, err
	}
	rule.Description = nullString(description)
	rule.LastMatchAt = nullTime(lastMatchAt)
	return rule, nil
}
