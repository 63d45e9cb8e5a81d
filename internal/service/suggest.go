package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/matching"
)

const (
	defaultSuggestionLimit = 5
	minSuggestionScore     = 0.3
	purposeMentionBonus    = 0.2
	exactAmountBonus       = 0.3
)

// SuggestService ranks tenants that could be behind a transaction. It backs the
// manual assignment screen and never changes a transaction.
type SuggestService struct {
	Organizations *repository.OrganizationRepo
	Accounts      *repository.AccountRepo
	Transactions  *repository.TransactionRepo
	Directory     *repository.DirectoryRepo
}

// Suggestion is one ranked candidate.
type Suggestion struct {
	TenantID      string
	TenantName    string
	LeaseID       string
	Score         float64
	AmountMatches bool
}

func (s *SuggestService) SuggestMatches(ctx context.Context, userID, transactionID string, limit int) ([]Suggestion, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return nil, err
	}
	tx, err := ownedTransaction(ctx, s.Transactions, s.Accounts, org.ID, transactionID)
	if err != nil {
		return nil, err
	}
	tenants, err := s.Directory.Tenants(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("load tenants: %w", err)
	}
	leases, err := s.Directory.Leases(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("load leases: %w", err)
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	return rankTenants(*tx, tenants, toMatchingLeases(leases), limit), nil
}

func rankTenants(tx repository.Transaction, tenants []repository.Tenant, leases []matching.Lease, limit int) []Suggestion {
	counterpart := strings.ToLower(strings.TrimSpace(deref(tx.CounterpartName)))
	purpose := strings.ToLower(deref(tx.Purpose))

	var out []Suggestion
	for _, t := range tenants {
		full := strings.ToLower(t.FullName())
		last := strings.ToLower(strings.TrimSpace(t.LastName))
		if full == "" {
			continue
		}
		score := nameSimilarity(counterpart, full)
		if last != "" {
			if v := nameSimilarity(counterpart, last); v > score {
				score = v
			}
			if strings.Contains(purpose, last) {
				score += purposeMentionBonus
			}
		}
		sg := Suggestion{TenantID: t.ID, TenantName: t.FullName()}
		if lease, ok := matching.ActiveLease(t.ID, leases); ok {
			sg.LeaseID = lease.ID
			if tx.AmountCents > 0 && tx.AmountCents == lease.ExpectedCents() {
				sg.AmountMatches = true
				score += exactAmountBonus
			}
		}
		if score > 1 {
			score = 1
		}
		if score < minSuggestionScore {
			continue
		}
		sg.Score = score
		out = append(out, sg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TenantName < out[j].TenantName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// nameSimilarity is 1 - distance/longer length, 0 for empty input.
func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longer := len([]rune(a))
	if n := len([]rune(b)); n > longer {
		longer = n
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longer)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
