package matching

import (
	"encoding/json"
	"fmt"
)

// Action kinds as persisted in transaction_rules.action_type.
const (
	KindAssignTenant = "assign_tenant"
	KindBookAs       = "book_as"
	KindIgnore       = "ignore"
)

// Transaction types.
const (
	TypeRent        = "rent"
	TypeDeposit     = "deposit"
	TypeUtility     = "utility"
	TypeMaintenance = "maintenance"
	TypeOther       = "other"
)

// ValidTransactionType reports whether s is a known transaction type.
func ValidTransactionType(s string) bool {
	switch s {
	case TypeRent, TypeDeposit, TypeUtility, TypeMaintenance, TypeOther:
		return true
	}
	return false
}

// Action is what a rule does when it fires. It is one of AssignTenant, BookAs or Ignore.
type Action interface {
	Kind() string
	isAction()
}

// AssignTenant books the transaction as rent for a tenant and lease.
type AssignTenant struct {
	TenantID string `json:"tenant_id"`
	LeaseID  string `json:"lease_id,omitempty"`
}

// BookAs sets a transaction type without assigning a tenant.
type BookAs struct {
	TransactionType string `json:"transaction_type"`
}

// Ignore marks the transaction as irrelevant for reconciliation.
type Ignore struct{}

func (AssignTenant) Kind() string { return KindAssignTenant }
func (BookAs) Kind() string       { return KindBookAs }
func (Ignore) Kind() string       { return KindIgnore }

func (AssignTenant) isAction() {}
func (BookAs) isAction()       {}
func (Ignore) isAction()       {}

// EncodeAction splits an action into its persisted kind and JSON config.
func EncodeAction(a Action) (kind, config string, err error) {
	if a == nil {
		return "", "", fmt.Errorf("encode action: nil action")
	}
	if err := ValidateAction(a); err != nil {
		return "", "", err
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", "", fmt.Errorf("encode action: %w", err)
	}
	return a.Kind(), string(b), nil
}

// DecodeAction rebuilds an action from its persisted kind and JSON config.
func DecodeAction(kind, config string) (Action, error) {
	if config == "" {
		config = "{}"
	}
	var a Action
	switch kind {
	case KindAssignTenant:
		var v AssignTenant
		if err := json.Unmarshal([]byte(config), &v); err != nil {
			return nil, fmt.Errorf("decode %s config: %w", kind, err)
		}
		a = v
	case KindBookAs:
		var v BookAs
		if err := json.Unmarshal([]byte(config), &v); err != nil {
			return nil, fmt.Errorf("decode %s config: %w", kind, err)
		}
		a = v
	case KindIgnore:
		a = Ignore{}
	default:
		return nil, fmt.Errorf("decode action: unknown action type %q", kind)
	}
	if err := ValidateAction(a); err != nil {
		return nil, err
	}
	return a, nil
}

// ValidateAction checks the payload required by each action kind.
func ValidateAction(a Action) error {
	switch v := a.(type) {
	case AssignTenant:
		if v.TenantID == "" {
			return fmt.Errorf("assign_tenant: tenant_id required")
		}
	case BookAs:
		if !ValidTransactionType(v.TransactionType) {
			return fmt.Errorf("book_as: unknown transaction_type %q", v.TransactionType)
		}
	case Ignore:
	default:
		return fmt.Errorf("unknown action %T", a)
	}
	return nil
}
