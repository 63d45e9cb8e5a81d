package service

import (
	"context"
	"fmt"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
)

const maxListLimit = 500

var matchStatuses = map[string]bool{
	repository.MatchUnmatched: true,
	repository.MatchAuto:      true,
	repository.MatchManual:    true,
	repository.MatchIgnored:   true,
}

// TransactionQuery narrows a transaction listing. Zero values mean no filter.
type TransactionQuery struct {
	AccountID string
	Status    string
	Limit     int
}

// TransactionService lists stored transactions of the caller's organization.
type TransactionService struct {
	Organizations *repository.OrganizationRepo
	Transactions  *repository.TransactionRepo
}

func (s *TransactionService) List(ctx context.Context, userID string, q TransactionQuery) ([]repository.Transaction, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return nil, err
	}
	if q.Status != "" && !matchStatuses[q.Status] {
		return nil, invalid("unknown match status %q", q.Status)
	}
	if q.Limit < 0 {
		return nil, invalid("limit must not be negative")
	}
	if q.Limit == 0 || q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	txs, err := s.Transactions.List(ctx, repository.TransactionFilters{
		OrganizationID: org.ID,
		AccountID:      q.AccountID,
		Status:         q.Status,
		Limit:          q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}
