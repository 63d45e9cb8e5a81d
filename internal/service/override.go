package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/logging"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/matching"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/pub"
)

const manualConfidence = 1.0

// OverrideService applies human match decisions.
type OverrideService struct {
	Organizations *repository.OrganizationRepo
	Accounts      *repository.AccountRepo
	Transactions  *repository.TransactionRepo
	Rules         *repository.RuleRepo
	Directory     *repository.DirectoryRepo
	Events        pub.Publisher
	Logger        *zap.Logger
	Now           func() time.Time
}

// MatchRequest is a manual assignment. Either TenantID or TransactionType must be set.
type MatchRequest struct {
	TenantID        string
	LeaseID         string
	TransactionType string
	CreateRule      bool
	RuleConditions  []matching.Condition
}

// MatchOutcome is the updated transaction plus the learned rule, if any.
type MatchOutcome struct {
	Transaction repository.Transaction
	Rule        *repository.Rule
}

// MatchTransaction sets a transaction to manual. It is allowed from every status.
func (s *OverrideService) MatchTransaction(ctx context.Context, userID, transactionID string, req MatchRequest) (MatchOutcome, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return MatchOutcome{}, err
	}
	tx, err := ownedTransaction(ctx, s.Transactions, s.Accounts, org.ID, transactionID)
	if err != nil {
		return MatchOutcome{}, err
	}

	if req.TenantID == "" && req.TransactionType == "" {
		return MatchOutcome{}, invalid("tenant or transaction type required")
	}
	if req.TransactionType != "" && !matching.ValidTransactionType(req.TransactionType) {
		return MatchOutcome{}, invalid("unknown transaction type %q", req.TransactionType)
	}
	if req.LeaseID != "" && req.TenantID == "" {
		return MatchOutcome{}, invalid("lease requires a tenant")
	}
	txType := req.TransactionType
	leaseID := req.LeaseID
	if req.TenantID != "" {
		leaseID, err = s.checkTenantLease(ctx, org.ID, req.TenantID, req.LeaseID)
		if err != nil {
			return MatchOutcome{}, err
		}
		if txType == "" {
			txType = matching.TypeRent
		}
	}

	var learned *repository.Rule
	if req.CreateRule {
		learned, err = learnRule(org.ID, tx, req.TenantID, leaseID, req.RuleConditions)
		if err != nil {
			return MatchOutcome{}, err
		}
	}

	now := s.now()
	conf := manualConfidence
	update := repository.MatchUpdate{
		Status:          repository.MatchManual,
		TransactionType: optional(txType),
		Confidence:      &conf,
		TenantID:        optional(req.TenantID),
		LeaseID:         optional(leaseID),
		MatchedAt:       &now,
		MatchedBy:       &userID,
	}
	if err := s.Transactions.UpdateMatch(ctx, tx.ID, update); err != nil {
		return MatchOutcome{}, fmt.Errorf("update match: %w", err)
	}
	applyUpdate(tx, update)

	if learned != nil {
		learned.CreatedAt = now
		if err := s.Rules.Add(ctx, *learned); err != nil {
			return MatchOutcome{Transaction: *tx}, fmt.Errorf("learn rule: %w", err)
		}
		s.logger().Info("rule learned from manual match",
			zap.String("rule_id", learned.ID),
			zap.String("transaction_id", tx.ID),
		)
	}

	s.publish(ctx, pub.Event{
		EventType:      pub.EventTransactionMatched,
		OrganizationID: org.ID,
		TransactionID:  tx.ID,
		TenantID:       req.TenantID,
		LeaseID:        leaseID,
		MatchStatus:    repository.MatchManual,
		ActorID:        userID,
	})
	return MatchOutcome{Transaction: *tx, Rule: learned}, nil
}

// IgnoreTransaction marks an unmatched transaction as ignored. Ignoring an
// ignored transaction is a no-op; auto and manual matches cannot be ignored.
func (s *OverrideService) IgnoreTransaction(ctx context.Context, userID, transactionID string) (repository.Transaction, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return repository.Transaction{}, err
	}
	tx, err := ownedTransaction(ctx, s.Transactions, s.Accounts, org.ID, transactionID)
	if err != nil {
		return repository.Transaction{}, err
	}
	switch tx.MatchStatus {
	case repository.MatchIgnored:
		return *tx, nil
	case repository.MatchUnmatched:
	default:
		return *tx, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, tx.MatchStatus, repository.MatchIgnored)
	}

	now := s.now()
	update := repository.MatchUpdate{
		Status:          repository.MatchIgnored,
		TransactionType: tx.TransactionType,
		MatchedAt:       &now,
		MatchedBy:       &userID,
	}
	if err := s.Transactions.UpdateMatch(ctx, tx.ID, update); err != nil {
		return *tx, fmt.Errorf("update match: %w", err)
	}
	applyUpdate(tx, update)
	return *tx, nil
}

// checkTenantLease verifies the tenant and lease belong to the organization and
// defaults the lease to the tenant's active one.
func (s *OverrideService) checkTenantLease(ctx context.Context, organizationID, tenantID, leaseID string) (string, error) {
	tenants, err := s.Directory.Tenants(ctx, organizationID)
	if err != nil {
		return "", fmt.Errorf("load tenants: %w", err)
	}
	found := false
	for _, t := range tenants {
		if t.ID == tenantID {
			found = true
			break
		}
	}
	if !found {
		return "", invalid("unknown tenant %q", tenantID)
	}
	leases, err := s.Directory.Leases(ctx, organizationID)
	if err != nil {
		return "", fmt.Errorf("load leases: %w", err)
	}
	if leaseID == "" {
		if l, ok := matching.ActiveLease(tenantID, toMatchingLeases(leases)); ok {
			return l.ID, nil
		}
		return "", nil
	}
	for _, l := range leases {
		if l.ID == leaseID {
			if l.TenantID != tenantID {
				return "", invalid("lease %q does not belong to tenant %q", leaseID, tenantID)
			}
			return leaseID, nil
		}
	}
	return "", invalid("unknown lease %q", leaseID)
}

// learnRule builds an assign_tenant rule from a manual match. Without explicit
// conditions it matches the counterpart name exactly.
func learnRule(organizationID string, tx *repository.Transaction, tenantID, leaseID string, conds []matching.Condition) (*repository.Rule, error) {
	if tenantID == "" {
		return nil, invalid("rule learning requires a tenant")
	}
	if len(conds) == 0 {
		if tx.CounterpartName == nil || strings.TrimSpace(*tx.CounterpartName) == "" {
			return nil, invalid("no counterpart name to learn a rule from")
		}
		conds = []matching.Condition{{Field: matching.FieldCounterpartName, Operator: matching.OpEquals, Value: *tx.CounterpartName}}
	}
	for _, c := range conds {
		if err := c.Validate(); err != nil {
			return nil, invalid("%v", err)
		}
	}
	encoded, err := matching.EncodeConditions(conds)
	if err != nil {
		return nil, err
	}
	kind, cfg, err := matching.EncodeAction(matching.AssignTenant{TenantID: tenantID, LeaseID: leaseID})
	if err != nil {
		return nil, invalid("%v", err)
	}
	return &repository.Rule{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Name:           "Auto: " + conds[0].Value,
		Conditions:     encoded,
		ActionType:     kind,
		ActionConfig:   cfg,
		Priority:       0,
		IsActive:       true,
	}, nil
}

func applyUpdate(tx *repository.Transaction, u repository.MatchUpdate) {
	tx.MatchStatus = u.Status
	tx.TransactionType = u.TransactionType
	tx.MatchConfidence = u.Confidence
	tx.MatchedTenantID = u.TenantID
	tx.MatchedLeaseID = u.LeaseID
	tx.MatchedRuleID = u.RuleID
	tx.MatchedAt = u.MatchedAt
	tx.MatchedBy = u.MatchedBy
}

func (s *OverrideService) publish(ctx context.Context, ev pub.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.logger().Warn("publish event", zap.String("event_type", ev.EventType), zap.Error(err))
	}
}

func (s *OverrideService) logger() *zap.Logger {
	return logging.Or(s.Logger, "override")
}

func (s *OverrideService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC().Truncate(time.Second)
	}
	return database.Now()
}
