package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/logging"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/matching"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/metrics"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/provider"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/pub"
)

// SyncService pulls bank transactions, classifies and stores them.
type SyncService struct {
	Organizations *repository.OrganizationRepo
	Connections   *repository.ConnectionRepo
	Accounts      *repository.AccountRepo
	Transactions  *repository.TransactionRepo
	Rules         *repository.RuleRepo
	Directory     *repository.DirectoryRepo
	Feed          provider.Feed
	Stats         *RuleStats
	Metrics       metrics.Collector
	Events        pub.Publisher
	Logger        *zap.Logger
	Now           func() time.Time
}

// SyncRequest selects the accounts to sync. AccountID wins over ConnectionID.
type SyncRequest struct {
	ConnectionID string
	AccountID    string
}

// SyncResult summarizes a sync run. Failures lists per-account provider errors
// and per-transaction persistence errors; neither aborts the run.
type SyncResult struct {
	NewTransactions   int
	Matched           int
	AccountsProcessed int
	Duplicates        int
	Failures          []error
}

// Sync runs a sync on behalf of an authenticated user.
func (s *SyncService) Sync(ctx context.Context, userID string, req SyncRequest) (SyncResult, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return SyncResult{}, err
	}
	return s.SyncOrganization(ctx, org.ID, req)
}

// SyncOrganization runs a sync for an already resolved organization.
func (s *SyncService) SyncOrganization(ctx context.Context, organizationID string, req SyncRequest) (SyncResult, error) {
	start := time.Now()
	res := SyncResult{}
	log := s.logger().With(zap.String("organization_id", organizationID))

	accounts, err := s.resolveAccounts(ctx, organizationID, req)
	if err != nil {
		return res, err
	}

	rules, err := s.loadRules(ctx, organizationID)
	if err != nil {
		return res, err
	}
	tenants, leases, err := s.loadDirectory(ctx, organizationID)
	if err != nil {
		return res, err
	}
	rules = s.dropStaleTargets(rules, tenants, leases)

	type connOutcome struct {
		synced int
		errMsg string
	}
	outcomes := map[string]*connOutcome{}
	var connOrder []string

	for _, acct := range accounts {
		o, ok := outcomes[acct.ConnectionID]
		if !ok {
			o = &connOutcome{}
			outcomes[acct.ConnectionID] = o
			connOrder = append(connOrder, acct.ConnectionID)
		}
		processed := res.AccountsProcessed
		if err := s.syncAccount(ctx, acct, rules, tenants, leases, &res); err != nil {
			// rows fetched before a balance failure are committed, so the sync still counts
			if res.AccountsProcessed > processed {
				o.synced++
			}
			res.Failures = append(res.Failures, err)
			o.errMsg = err.Error()
			s.metrics().RecordProviderError()
			log.Warn("account sync failed", zap.String("account_id", acct.ID), zap.Error(err))
			continue
		}
		o.synced++
	}

	now := s.now()
	for _, connID := range connOrder {
		o := outcomes[connID]
		if o.synced > 0 {
			if err := s.Connections.MarkSynced(ctx, connID, now); err != nil {
				log.Error("mark connection synced", zap.String("connection_id", connID), zap.Error(err))
			}
		}
		if o.errMsg != "" {
			if err := s.Connections.MarkError(ctx, connID, o.errMsg); err != nil {
				log.Error("mark connection error", zap.String("connection_id", connID), zap.Error(err))
			}
		}
	}

	s.metrics().RecordSync(organizationID, res.NewTransactions, res.Matched, time.Since(start))
	s.publish(ctx, pub.Event{
		EventType:       pub.EventSyncCompleted,
		OrganizationID:  organizationID,
		NewTransactions: res.NewTransactions,
		Matched:         res.Matched,
		Accounts:        res.AccountsProcessed,
	})
	log.Info("bank sync finished",
		zap.Int("new_transactions", res.NewTransactions),
		zap.Int("matched", res.Matched),
		zap.Int("accounts_processed", res.AccountsProcessed),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("failures", len(res.Failures)),
	)
	return res, nil
}

func (s *SyncService) resolveAccounts(ctx context.Context, organizationID string, req SyncRequest) ([]repository.Account, error) {
	var candidates []repository.Account
	switch {
	case req.AccountID != "":
		a, err := s.Accounts.Get(ctx, req.AccountID)
		if err != nil {
			return nil, fmt.Errorf("load account: %w", err)
		}
		if a != nil {
			candidates = append(candidates, *a)
		}
	case req.ConnectionID != "":
		list, err := s.Accounts.ListByConnection(ctx, req.ConnectionID)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		candidates = list
	default:
		return nil, ErrNoAccountsFound
	}

	var out []repository.Account
	for _, a := range candidates {
		if a.OrganizationID != organizationID || !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, ErrNoAccountsFound
	}
	return out, nil
}

// syncAccount returns a *ProviderSyncError when the feed fails. Row level
// problems are collected in res and never abort the account.
func (s *SyncService) syncAccount(ctx context.Context, acct repository.Account, rules []matching.Rule, tenants []matching.Tenant, leases []matching.Lease, res *SyncResult) error {
	log := s.logger().With(zap.String("account_id", acct.ID))
	feedAcct := provider.Account{ID: acct.ID, ProviderAccountID: acct.ProviderAccountID, IBAN: acct.IBAN, Currency: acct.Currency}

	raws, err := s.Feed.FetchTransactions(ctx, feedAcct)
	if err != nil {
		return &ProviderSyncError{AccountID: acct.ID, Err: err}
	}
	res.AccountsProcessed++

	guard, err := newDedupGuard(ctx, s.Transactions, acct.ID, len(raws))
	if err != nil {
		// without a filter every id is confirmed against the store
		log.Warn("dedup filter unavailable", zap.Error(err))
		guard = &dedupGuard{accountID: acct.ID, repo: s.Transactions}
	}

	for _, raw := range raws {
		if raw.ProviderTransactionID != "" {
			seen, err := guard.Seen(ctx, raw.ProviderTransactionID)
			if err != nil {
				log.Warn("dedup lookup failed", zap.String("provider_transaction_id", raw.ProviderTransactionID), zap.Error(err))
			}
			if seen {
				res.Duplicates++
				s.metrics().RecordDuplicate()
				continue
			}
		}

		now := s.now()
		m := classify(raw, rules, tenants, leases)
		tx := newTransaction(acct.ID, raw, m, now)

		if err := s.Transactions.Insert(ctx, tx); err != nil {
			if database.IsUniqueViolation(err) {
				res.Duplicates++
				s.metrics().RecordDuplicate()
				continue
			}
			perr := &PersistenceError{AccountID: acct.ID, ProviderTransactionID: raw.ProviderTransactionID, Err: err}
			res.Failures = append(res.Failures, perr)
			s.metrics().RecordPersistenceError()
			log.Error("insert transaction", zap.String("provider_transaction_id", raw.ProviderTransactionID), zap.Error(err))
			continue
		}

		res.NewTransactions++
		if tx.MatchStatus == repository.MatchAuto {
			res.Matched++
		}
		s.metrics().RecordTransaction(tx.MatchStatus)
		if raw.ProviderTransactionID != "" {
			guard.Add(raw.ProviderTransactionID)
		}
		if ev := m.Fired(now); ev != nil && s.Stats != nil {
			s.Stats.Apply(ctx, *ev)
		}
	}

	bal, err := s.Feed.FetchBalance(ctx, feedAcct)
	if err != nil {
		return &ProviderSyncError{AccountID: acct.ID, Err: fmt.Errorf("balance: %w", err)}
	}
	balanceDate := bal.BalanceDate
	if balanceDate.IsZero() {
		balanceDate = s.now()
	}
	if err := s.Accounts.UpdateBalance(ctx, acct.ID, bal.BalanceCents, balanceDate.UTC()); err != nil {
		res.Failures = append(res.Failures, &PersistenceError{AccountID: acct.ID, Err: fmt.Errorf("balance: %w", err)})
		log.Error("update balance", zap.Error(err))
	}
	return nil
}

// classify runs the rule engine and, for inbound payments no rule claimed,
// the name based fallback.
func classify(raw provider.RawTransaction, rules []matching.Rule, tenants []matching.Tenant, leases []matching.Lease) *matching.Match {
	in := matching.Transaction{
		AmountCents:     raw.AmountCents,
		Currency:        raw.Currency,
		CounterpartName: raw.CounterpartName,
		CounterpartIBAN: raw.CounterpartIBAN,
		Purpose:         raw.Purpose,
		BookingText:     raw.BookingText,
	}
	if m := matching.Evaluate(in, rules); m != nil {
		return m
	}
	if raw.AmountCents > 0 {
		return matching.Detect(in, tenants, leases)
	}
	return nil
}

func newTransaction(accountID string, raw provider.RawTransaction, m *matching.Match, now time.Time) repository.Transaction {
	tx := repository.Transaction{
		ID:                    uuid.NewString(),
		AccountID:             accountID,
		ProviderTransactionID: optional(raw.ProviderTransactionID),
		BookingDate:           raw.BookingDate.UTC(),
		AmountCents:           raw.AmountCents,
		Currency:              raw.Currency,
		CounterpartName:       optional(raw.CounterpartName),
		CounterpartIBAN:       optional(raw.CounterpartIBAN),
		Purpose:               optional(raw.Purpose),
		BookingText:           optional(raw.BookingText),
		MatchStatus:           repository.MatchUnmatched,
	}
	if raw.ValueDate != nil {
		vd := raw.ValueDate.UTC()
		tx.ValueDate = &vd
	}
	if m == nil {
		return tx
	}
	tx.MatchStatus = m.Status
	tx.TransactionType = optional(m.TransactionType)
	tx.MatchConfidence = m.Confidence
	tx.MatchedTenantID = optional(m.TenantID)
	tx.MatchedLeaseID = optional(m.LeaseID)
	tx.MatchedRuleID = optional(m.RuleID)
	if m.Status != repository.MatchUnmatched {
		at := now
		tx.MatchedAt = &at
	}
	return tx
}

func (s *SyncService) loadRules(ctx context.Context, organizationID string) ([]matching.Rule, error) {
	stored, err := s.Rules.ListActive(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	out := make([]matching.Rule, 0, len(stored))
	for _, r := range stored {
		rule, err := decodeRule(r)
		if err != nil {
			s.logger().Warn("skipping malformed rule", zap.String("rule_id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

// dropStaleTargets removes assign_tenant rules whose tenant or lease is gone
// from the directory. Rows such a rule would claim fall through to the
// remaining rules and the fallback instead of failing the foreign key.
func (s *SyncService) dropStaleTargets(rules []matching.Rule, tenants []matching.Tenant, leases []matching.Lease) []matching.Rule {
	knownTenants := make(map[string]bool, len(tenants))
	for _, t := range tenants {
		knownTenants[t.ID] = true
	}
	leaseTenant := make(map[string]string, len(leases))
	for _, l := range leases {
		leaseTenant[l.ID] = l.TenantID
	}

	out := rules[:0]
	for _, r := range rules {
		if a, ok := r.Action.(matching.AssignTenant); ok {
			stale := !knownTenants[a.TenantID]
			if a.LeaseID != "" && leaseTenant[a.LeaseID] != a.TenantID {
				stale = true
			}
			if stale {
				s.logger().Warn("skipping rule with unknown tenant or lease",
					zap.String("rule_id", r.ID),
					zap.String("tenant_id", a.TenantID),
					zap.String("lease_id", a.LeaseID),
				)
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func (s *SyncService) loadDirectory(ctx context.Context, organizationID string) ([]matching.Tenant, []matching.Lease, error) {
	tenants, err := s.Directory.Tenants(ctx, organizationID)
	if err != nil {
		return nil, nil, fmt.Errorf("load tenants: %w", err)
	}
	leases, err := s.Directory.Leases(ctx, organizationID)
	if err != nil {
		return nil, nil, fmt.Errorf("load leases: %w", err)
	}
	return toMatchingTenants(tenants), toMatchingLeases(leases), nil
}

func (s *SyncService) publish(ctx context.Context, ev pub.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.logger().Warn("publish event", zap.String("event_type", ev.EventType), zap.Error(err))
	}
}

func (s *SyncService) logger() *zap.Logger {
	return logging.Or(s.Logger, "sync")
}

func (s *SyncService) metrics() metrics.Collector {
	if s.Metrics == nil {
		return metrics.NoOpCollector{}
	}
	return s.Metrics
}

func (s *SyncService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC().Truncate(time.Second)
	}
	return database.Now()
}

func decodeRule(r repository.Rule) (matching.Rule, error) {
	conds, err := matching.DecodeConditions(r.Conditions)
	if err != nil {
		return matching.Rule{}, err
	}
	action, err := matching.DecodeAction(r.ActionType, r.ActionConfig)
	if err != nil {
		return matching.Rule{}, err
	}
	return matching.Rule{
		ID:         r.ID,
		Name:       r.Name,
		Priority:   r.Priority,
		IsActive:   r.IsActive,
		CreatedAt:  r.CreatedAt,
		Conditions: conds,
		Action:     action,
	}, nil
}

func toMatchingTenants(in []repository.Tenant) []matching.Tenant {
	out := make([]matching.Tenant, 0, len(in))
	for _, t := range in {
		out = append(out, matching.Tenant{ID: t.ID, FirstName: t.FirstName, LastName: t.LastName})
	}
	return out
}

func toMatchingLeases(in []repository.Lease) []matching.Lease {
	out := make([]matching.Lease, 0, len(in))
	for _, l := range in {
		out = append(out, matching.Lease{
			ID:             l.ID,
			TenantID:       l.TenantID,
			Status:         l.Status,
			RentAmount:     l.RentAmount,
			UtilityAdvance: l.UtilityAdvance,
		})
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IsFatal reports whether err aborted a whole sync call rather than one account.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrOrganizationNotFound) || errors.Is(err, ErrNoAccountsFound)
}
