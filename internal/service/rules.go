package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/matching"
)

// RuleService manages an organization's transaction rules.
type RuleService struct {
	Organizations *repository.OrganizationRepo
	Rules         *repository.RuleRepo
	Directory     *repository.DirectoryRepo
	Now           func() time.Time
}

// RuleInput is the user-editable part of a rule.
type RuleInput struct {
	Name        string
	Description string
	Conditions  []matching.Condition
	Action      matching.Action
	Priority    int
	IsActive    bool
}

func (s *RuleService) List(ctx context.Context, userID string) ([]repository.Rule, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return nil, err
	}
	return s.Rules.List(ctx, org.ID)
}

func (s *RuleService) Create(ctx context.Context, userID string, in RuleInput) (repository.Rule, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return repository.Rule{}, err
	}
	rule, err := s.build(ctx, org.ID, uuid.NewString(), in)
	if err != nil {
		return repository.Rule{}, err
	}
	rule.CreatedAt = s.now()
	if err := s.Rules.Add(ctx, rule); err != nil {
		return repository.Rule{}, fmt.Errorf("add rule: %w", err)
	}
	return s.get(ctx, org.ID, rule.ID)
}

func (s *RuleService) Update(ctx context.Context, userID, ruleID string, in RuleInput) (repository.Rule, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return repository.Rule{}, err
	}
	rule, err := s.build(ctx, org.ID, ruleID, in)
	if err != nil {
		return repository.Rule{}, err
	}
	ok, err := s.Rules.Update(ctx, rule)
	if err != nil {
		return repository.Rule{}, fmt.Errorf("update rule: %w", err)
	}
	if !ok {
		return repository.Rule{}, ErrRuleNotFound
	}
	return s.get(ctx, org.ID, ruleID)
}

func (s *RuleService) Delete(ctx context.Context, userID, ruleID string) error {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return err
	}
	ok, err := s.Rules.Delete(ctx, org.ID, ruleID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if !ok {
		return ErrRuleNotFound
	}
	return nil
}

func (s *RuleService) get(ctx context.Context, organizationID, ruleID string) (repository.Rule, error) {
	rule, err := s.Rules.Get(ctx, ruleID)
	if err != nil {
		return repository.Rule{}, fmt.Errorf("load rule: %w", err)
	}
	if rule == nil || rule.OrganizationID != organizationID {
		return repository.Rule{}, ErrRuleNotFound
	}
	return *rule, nil
}

func (s *RuleService) build(ctx context.Context, organizationID, id string, in RuleInput) (repository.Rule, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return repository.Rule{}, invalid("rule name required")
	}
	if len(in.Conditions) == 0 {
		return repository.Rule{}, invalid("at least one condition required")
	}
	for _, c := range in.Conditions {
		if err := c.Validate(); err != nil {
			return repository.Rule{}, invalid("%v", err)
		}
	}
	if in.Action == nil {
		return repository.Rule{}, invalid("action required")
	}
	if err := matching.ValidateAction(in.Action); err != nil {
		return repository.Rule{}, invalid("%v", err)
	}
	if a, ok := in.Action.(matching.AssignTenant); ok {
		if err := s.checkAssignTarget(ctx, organizationID, a); err != nil {
			return repository.Rule{}, err
		}
	}

	conds, err := matching.EncodeConditions(in.Conditions)
	if err != nil {
		return repository.Rule{}, err
	}
	kind, cfg, err := matching.EncodeAction(in.Action)
	if err != nil {
		return repository.Rule{}, invalid("%v", err)
	}
	return repository.Rule{
		ID:             id,
		OrganizationID: organizationID,
		Name:           name,
		Description:    optional(strings.TrimSpace(in.Description)),
		Conditions:     conds,
		ActionType:     kind,
		ActionConfig:   cfg,
		Priority:       in.Priority,
		IsActive:       in.IsActive,
	}, nil
}

func (s *RuleService) checkAssignTarget(ctx context.Context, organizationID string, a matching.AssignTenant) error {
	tenants, err := s.Directory.Tenants(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("load tenants: %w", err)
	}
	known := false
	for _, t := range tenants {
		if t.ID == a.TenantID {
			known = true
			break
		}
	}
	if !known {
		return invalid("unknown tenant %q", a.TenantID)
	}
	if a.LeaseID == "" {
		return nil
	}
	leases, err := s.Directory.Leases(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("load leases: %w", err)
	}
	for _, l := range leases {
		if l.ID == a.LeaseID && l.TenantID == a.TenantID {
			return nil
		}
	}
	return invalid("lease %q does not belong to tenant %q", a.LeaseID, a.TenantID)
}

func (s *RuleService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return database.Now()
}
