package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Connection statuses.
const (
	ConnectionPending        = "pending"
	ConnectionConnected      = "connected"
	ConnectionError          = "error"
	ConnectionUpdateRequired = "update_required"
	ConnectionDisconnected   = "disconnected"
)

// Match statuses.
const (
	MatchUnmatched = "unmatched"
	MatchAuto      = "auto"
	MatchManual    = "manual"
	MatchIgnored   = "ignored"
)

// Organization represents an organization row.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Tenant represents a tenant row.
type Tenant struct {
	ID             string
	OrganizationID string
	FirstName      string
	LastName       string
}

// FullName joins first and last name.
func (t Tenant) FullName() string {
	if t.FirstName == "" {
		return t.LastName
	}
	if t.LastName == "" {
		return t.FirstName
	}
	return t.FirstName + " " + t.LastName
}

// Lease represents a lease row. Amounts are in euros.
type Lease struct {
	ID             string
	OrganizationID string
	TenantID       string
	RentAmount     decimal.Decimal
	UtilityAdvance *decimal.Decimal
	Status         string
}

// Connection represents a bank_connections row.
type Connection struct {
	ID                   string
	OrganizationID       string
	ProviderUserID       string
	ProviderConnectionID string
	BankName             string
	BankLogo             *string
	BankBIC              *string
	Status               string
	LastSyncAt           *time.Time
	ErrorMessage         *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Account represents a bank_accounts row.
type Account struct {
	ID                string
	ConnectionID      string
	OrganizationID    string // joined from the connection
	ProviderAccountID string
	IBAN              string
	Name              string
	AccountType       string
	BalanceCents      int64
	BalanceDate       *time.Time
	Currency          string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Transaction represents a bank_transactions row.
type Transaction struct {
	ID                    string
	AccountID             string
	ProviderTransactionID *string
	BookingDate           time.Time
	ValueDate             *time.Time
	AmountCents           int64
	Currency              string
	CounterpartName       *string
	CounterpartIBAN       *string
	Purpose               *string
	BookingText           *string
	TransactionType       *string
	MatchStatus           string
	MatchConfidence       *float64
	MatchedTenantID       *string
	MatchedLeaseID        *string
	MatchedRuleID         *string
	MatchedAt             *time.Time
	MatchedBy             *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Rule represents a transaction_rules row. Conditions and ActionConfig hold JSON.
type Rule struct {
	ID             string
	OrganizationID string
	Name           string
	Description    *string
	Conditions     string
	ActionType     string
	ActionConfig   string
	Priority       int
	IsActive       bool
	MatchCount     int64
	LastMatchAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
