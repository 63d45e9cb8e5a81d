package service

import (
	"context"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
)

const dedupFalsePositiveRate = 0.01

// dedupGuard answers "was this provider transaction stored already?" for one
// account. The bloom filter only short-circuits definite misses; hits are
// confirmed against the store, and the UNIQUE constraint stays authoritative.
type dedupGuard struct {
	accountID string
	filter    *bloom.BloomFilter
	repo      *repository.TransactionRepo
}

func newDedupGuard(ctx context.Context, repo *repository.TransactionRepo, accountID string, incoming int) (*dedupGuard, error) {
	known, err := repo.ProviderIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	n := uint(len(known) + incoming)
	if n < 64 {
		n = 64
	}
	g := &dedupGuard{
		accountID: accountID,
		filter:    bloom.NewWithEstimates(n, dedupFalsePositiveRate),
		repo:      repo,
	}
	for _, id := range known {
		g.filter.AddString(id)
	}
	return g, nil
}

// Seen reports whether providerID is already stored for the account.
func (g *dedupGuard) Seen(ctx context.Context, providerID string) (bool, error) {
	if g.filter != nil && !g.filter.TestString(providerID) {
		return false, nil
	}
	return g.repo.ExistsByProviderID(ctx, g.accountID, providerID)
}

// Add records a freshly stored id.
func (g *dedupGuard) Add(providerID string) {
	if g.filter != nil {
		g.filter.AddString(providerID)
	}
}
