package service

import (
	"context"
	"fmt"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
)

// resolveOrganization maps an authenticated user to their organization.
func resolveOrganization(ctx context.Context, orgs *repository.OrganizationRepo, userID string) (*repository.Organization, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	org, err := orgs.ForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve organization: %w", err)
	}
	if org == nil {
		return nil, ErrOrganizationNotFound
	}
	return org, nil
}

// ownedTransaction loads a transaction and checks it belongs to the organization.
// Transactions of other organizations are reported as not found.
func ownedTransaction(ctx context.Context, txs *repository.TransactionRepo, accounts *repository.AccountRepo, organizationID, transactionID string) (*repository.Transaction, error) {
	tx, err := txs.Get(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	acct, err := accounts.Get(ctx, tx.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acct == nil || acct.OrganizationID != organizationID {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}
