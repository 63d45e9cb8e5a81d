package matching

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	exactAmountConfidence = 0.95
	nameOnlyConfidence    = 0.70
	rentKeywordConfidence = 0.5
	leaseStatusActive     = "active"
)

var rentKeywords = []string{"miete", "rent"}

// Tenant is a directory entry the fallback can match against.
type Tenant struct {
	ID        string
	FirstName string
	LastName  string
}

// Lease carries the amounts used to score a match. Amounts are in euros.
type Lease struct {
	ID             string
	TenantID       string
	Status         string
	RentAmount     decimal.Decimal
	UtilityAdvance *decimal.Decimal
}

// ExpectedCents is rent plus utility advance in minor units, rounded half away from zero.
func (l Lease) ExpectedCents() int64 {
	total := l.RentAmount
	if l.UtilityAdvance != nil {
		total = total.Add(*l.UtilityAdvance)
	}
	return total.Shift(2).Round(0).IntPart()
}

// Detect guesses the tenant behind an inbound payment by name. It returns nil
// for outbound payments and when neither a tenant nor a rent keyword is found.
func Detect(tx Transaction, tenants []Tenant, leases []Lease) *Match {
	if tx.AmountCents <= 0 {
		return nil
	}
	counterpart := strings.ToLower(tx.CounterpartName)
	purpose := strings.ToLower(tx.Purpose)

	for _, t := range tenants {
		lastName := strings.ToLower(strings.TrimSpace(t.LastName))
		if lastName == "" {
			continue
		}
		fullName := strings.ToLower(strings.TrimSpace(t.FirstName + " " + t.LastName))
		if !mentions(counterpart, fullName, lastName) && !mentions(purpose, fullName, lastName) {
			continue
		}
		lease, ok := ActiveLease(t.ID, leases)
		if !ok {
			continue
		}
		score := nameOnlyConfidence
		if tx.AmountCents == lease.ExpectedCents() {
			score = exactAmountConfidence
		}
		return &Match{
			Status:          StatusAuto,
			TransactionType: TypeRent,
			Confidence:      confidence(score),
			TenantID:        t.ID,
			LeaseID:         lease.ID,
		}
	}

	for _, kw := range rentKeywords {
		if strings.Contains(purpose, kw) {
			return &Match{
				Status:          StatusUnmatched,
				TransactionType: TypeRent,
				Confidence:      confidence(rentKeywordConfidence),
			}
		}
	}
	return nil
}

// ActiveLease returns the tenant's first active lease.
func ActiveLease(tenantID string, leases []Lease) (Lease, bool) {
	for _, l := range leases {
		if l.TenantID == tenantID && l.Status == leaseStatusActive {
			return l, true
		}
	}
	return Lease{}, false
}

func mentions(haystack, fullName, lastName string) bool {
	if haystack == "" {
		return false
	}
	return strings.Contains(haystack, fullName) || strings.Contains(haystack, lastName)
}
