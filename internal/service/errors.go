package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the call carries no caller identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrOrganizationNotFound means the caller belongs to no organization.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrNoAccountsFound means no account of the caller's organization matched the request.
	ErrNoAccountsFound = errors.New("no bank accounts found")

	// ErrInvalidTransition is returned for match status changes the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid match status transition")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRuleNotFound        = errors.New("rule not found")
	ErrConnectionNotFound  = errors.New("bank connection not found")
	ErrInvalidRequest      = errors.New("invalid request")
)

// ProviderSyncError reports a failed feed call for one account. The rest of
// the sync continues.
type ProviderSyncError struct {
	AccountID string
	Err       error
}

func (e *ProviderSyncError) Error() string {
	return fmt.Sprintf("provider sync failed for account %s: %v", e.AccountID, e.Err)
}

func (e *ProviderSyncError) Unwrap() error { return e.Err }

// PersistenceError reports a transaction that could not be stored.
type PersistenceError struct {
	AccountID             string
	ProviderTransactionID string
	Err                   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist transaction %q for account %s: %v", e.ProviderTransactionID, e.AccountID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
