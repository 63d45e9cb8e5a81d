// Package provider is the boundary to the upstream bank-data feed.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the feed refuses calls, e.g. an open breaker.
var ErrUnavailable = errors.New("bank feed unavailable")

// Account identifies the account at the provider.
type Account struct {
	ID                string
	ProviderAccountID string
	IBAN              string
	Currency          string
}

// RawTransaction is one booking as delivered by the provider.
type RawTransaction struct {
	ProviderTransactionID string     `json:"id"`
	BookingDate           time.Time  `json:"booking_date"`
	ValueDate             *time.Time `json:"value_date,omitempty"`
	AmountCents           int64      `json:"amount_cents"`
	Currency              string     `json:"currency"`
	CounterpartName       string     `json:"counterpart_name"`
	CounterpartIBAN       string     `json:"counterpart_iban"`
	Purpose               string     `json:"purpose"`
	BookingText           string     `json:"booking_text"`
}

// Balance is the provider's current account balance.
type Balance struct {
	BalanceCents int64     `json:"balance_cents"`
	BalanceDate  time.Time `json:"balance_date"`
}

// Feed fetches bookings and balances for a linked account.
type Feed interface {
	FetchTransactions(ctx context.Context, acct Account) ([]RawTransaction, error)
	FetchBalance(ctx context.Context, acct Account) (Balance, error)
}
