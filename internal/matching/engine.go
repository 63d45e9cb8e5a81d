// Package matching classifies bank transactions. It holds no state and
// performs no I/O: callers load rules and directory data, and persist results.
package matching

import (
	"sort"
	"time"
)

// Match statuses.
const (
	StatusUnmatched = "unmatched"
	StatusAuto      = "auto"
	StatusManual    = "manual"
	StatusIgnored   = "ignored"
)

// Transaction is the part of a bank transaction the matchers look at.
type Transaction struct {
	AmountCents     int64
	Currency        string
	CounterpartName string
	CounterpartIBAN string
	Purpose         string
	BookingText     string
}

// Rule is a decoded transaction rule.
type Rule struct {
	ID         string
	Name       string
	Priority   int
	IsActive   bool
	CreatedAt  time.Time
	Conditions []Condition
	Action     Action
}

// Match is a classification outcome. Empty strings mean "not set".
type Match struct {
	Status          string
	TransactionType string
	Confidence      *float64
	TenantID        string
	LeaseID         string
	RuleID          string
}

// RuleFired records that a rule classified a transaction. The engine only
// emits it; applying match statistics is the caller's job.
type RuleFired struct {
	RuleID string
	At     time.Time
}

// Sort orders rules for evaluation: priority desc, then created_at asc, then id asc.
func Sort(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Evaluate returns the result of the first active rule whose conditions all
// hold, or nil. Rules without conditions never fire.
func Evaluate(tx Transaction, rules []Rule) *Match {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	Sort(ordered)

	for _, r := range ordered {
		if !r.IsActive || r.Action == nil || len(r.Conditions) == 0 {
			continue
		}
		if !allMatch(tx, r.Conditions) {
			continue
		}
		m := apply(r.Action)
		m.RuleID = r.ID
		return &m
	}
	return nil
}

// Fired builds the event for a rule match, or nil when no rule was involved.
func (m *Match) Fired(at time.Time) *RuleFired {
	if m == nil || m.RuleID == "" {
		return nil
	}
	return &RuleFired{RuleID: m.RuleID, At: at}
}

func allMatch(tx Transaction, conds []Condition) bool {
	for _, c := range conds {
		if !c.Matches(tx) {
			return false
		}
	}
	return true
}

func apply(a Action) Match {
	switch v := a.(type) {
	case Ignore:
		return Match{Status: StatusIgnored}
	case AssignTenant:
		return Match{
			Status:          StatusAuto,
			TransactionType: TypeRent,
			Confidence:      confidence(1.0),
			TenantID:        v.TenantID,
			LeaseID:         v.LeaseID,
		}
	case BookAs:
		return Match{Status: StatusAuto, TransactionType: v.TransactionType}
	}
	return Match{Status: StatusUnmatched}
}

func confidence(v float64) *float64 { return &v }
