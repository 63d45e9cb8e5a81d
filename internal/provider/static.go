package provider

import (
	"context"
	"sync"
)

// Static serves fixed bookings per account id. It is meant for tests and demos.
type Static struct {
	mu            sync.Mutex
	Transactions  map[string][]RawTransaction
	Balances      map[string]Balance
	Errors        map[string]error
	// BalanceErrors fail only FetchBalance, after the bookings were served.
	BalanceErrors map[string]error
	Calls         int
}

func NewStatic() *Static {
	return &Static{
		Transactions:  map[string][]RawTransaction{},
		Balances:      map[string]Balance{},
		Errors:        map[string]error{},
		BalanceErrors: map[string]error{},
	}
}

func (s *Static) FetchTransactions(ctx context.Context, acct Account) ([]RawTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if err := s.Errors[acct.ID]; err != nil {
		return nil, err
	}
	out := make([]RawTransaction, len(s.Transactions[acct.ID]))
	copy(out, s.Transactions[acct.ID])
	return out, nil
}

func (s *Static) FetchBalance(ctx context.Context, acct Account) (Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Errors[acct.ID]; err != nil {
		return Balance{}, err
	}
	if err := s.BalanceErrors[acct.ID]; err != nil {
		return Balance{}, err
	}
	return s.Balances[acct.ID], nil
}
